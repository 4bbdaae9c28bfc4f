package frame

import (
	"context"

	"github.com/norasector/fineoffset/pkg/bitbuffer"
	"github.com/rs/zerolog"
)

// Assembler takes bits demodulated over the air and assembles them into rows.
type Assembler interface {
	// Receive expects a buffer of 1s and 0s that correspond to the bits in a frame.
	// Each byte should only contain 1 bit.  There is no bit packing.
	Receive([]byte)
}

// RowAssembler syncs on a marker byte and cuts the bit stream into rows of a
// fixed length, starting with the marker. Finished rows go to the output channel.
type RowAssembler struct {
	marker     byte
	rowBits    int
	syncReg    byte
	inSync     bool
	rxCount    int
	buf        bitbuffer.Buffer
	outputChan chan<- bitbuffer.Row
	logger     zerolog.Logger
	ctx        context.Context
	emitted    int
}

func NewRowAssembler(ctx context.Context, marker byte, rowBits int, ch chan<- bitbuffer.Row, logger zerolog.Logger) *RowAssembler {
	// at least the marker plus one byte
	if rowBits < 16 {
		rowBits = 16
	}
	if rowBits > bitbuffer.MaxRowBits {
		rowBits = bitbuffer.MaxRowBits
	}
	return &RowAssembler{
		marker:     marker,
		rowBits:    rowBits,
		outputChan: ch,
		logger:     logger,
		ctx:        ctx,
	}
}

func (a *RowAssembler) receiveSymbol(symbol byte) {
	bit := symbol & 1

	if !a.inSync {
		a.syncReg = (a.syncReg << 1) | bit
		if a.syncReg != a.marker {
			return
		}
		a.inSync = true
		a.buf.Reset()
		for i := 7; i >= 0; i-- {
			a.buf.AddBit((a.marker >> uint(i)) & 1)
		}
		a.rxCount = 8
		return
	}

	a.buf.AddBit(bit)
	a.rxCount++
	if a.rxCount < a.rowBits {
		return
	}

	row := a.buf.Row(0)
	a.inSync = false
	a.syncReg = 0
	a.rxCount = 0
	a.buf.Reset()

	select {
	case <-a.ctx.Done():
		return
	case a.outputChan <- row:
		a.emitted++
		a.logger.Trace().Str("row", row.String()).Msg("row assembled")
	}
}

func (a *RowAssembler) Receive(buf []byte) {
	for i := 0; i < len(buf); i++ {
		if a.ctx.Err() != nil {
			return
		}
		a.receiveSymbol(buf[i])
	}
}

// Reset drops a partially assembled row. Call it when the gap between pulses
// exceeds the device reset limit.
func (a *RowAssembler) Reset() {
	if a.inSync {
		a.logger.Debug().Int("bits", a.rxCount).Msg("partial row dropped")
	}
	a.inSync = false
	a.syncReg = 0
	a.rxCount = 0
	a.buf.Reset()
}

// Emitted returns the number of rows handed to the output channel.
func (a *RowAssembler) Emitted() int { return a.emitted }
