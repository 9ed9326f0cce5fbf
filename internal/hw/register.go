package hw

import (
	"fmt"
	"strings"
)

// Bank is a group of indicator LEDs on the shift register.
type Bank int

const (
	BankTemperature Bank = iota
	BankPollution
	BankEnergy
	BankSun
)

// bankLayout is the bit offset and width of each bank in the 24-bit image.
var bankLayout = [...]struct {
	name   string
	offset uint
	width  uint
}{
	BankTemperature: {"temperature", 0, 8},
	BankPollution:   {"pollution", 8, 6},
	BankEnergy:      {"energy", 14, 6},
	BankSun:         {"sun", 20, 4},
}

// RegisterBits is the number of outputs on the chained shift registers.
const RegisterBits = 24

func (b Bank) String() string {
	if b >= 0 && int(b) < len(bankLayout) {
		return bankLayout[b].name
	}
	return fmt.Sprintf("Bank(%d)", int(b))
}

// Width returns the number of LEDs in the bank.
func (b Bank) Width() int {
	return int(bankLayout[b].width)
}

// mask covers the bank's bits.
func (b Bank) mask() uint32 {
	l := bankLayout[b]
	return lowBits(l.width) << l.offset
}

// Banks returns every bank, lowest bits first.
func Banks() []Bank {
	return []Bank{BankTemperature, BankPollution, BankEnergy, BankSun}
}

// ParseBank resolves a bank name.
func ParseBank(name string) (Bank, error) {
	for _, b := range Banks() {
		if strings.EqualFold(b.String(), name) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown indicator bank %q", name)
}

// lowBits returns a word with the n lowest bits set.
func lowBits(n uint) uint32 {
	if n >= 32 {
		return ^uint32(0)
	}
	return ^(^uint32(0) << n)
}

// Register holds the indicator image and pushes it to a Shifter on every
// change. Each bank shows a level as its n lowest LEDs lit.
type Register struct {
	image uint32
	sink  Shifter
}

// NewRegister creates a register with every LED off. The blank image is
// not shifted out until the first write.
func NewRegister(sink Shifter) *Register {
	return &Register{sink: sink}
}

// Set lights the n lowest LEDs of bank b, clamped to [0, width], and
// shifts the new image out. The other banks are untouched.
func (r *Register) Set(b Bank, n int) error {
	if b < 0 || int(b) >= len(bankLayout) {
		return fmt.Errorf("unknown indicator bank %d", int(b))
	}
	if n < 0 {
		n = 0
	}
	if n > b.Width() {
		n = b.Width()
	}
	l := bankLayout[b]
	r.image = (r.image &^ b.mask()) | (lowBits(uint(n)) << l.offset)
	if r.sink == nil {
		return nil
	}
	if err := r.sink.Shift(r.image); err != nil {
		return fmt.Errorf("shift %s=%d: %w", b, n, err)
	}
	return nil
}

// Level returns how many LEDs of bank b are lit.
func (r *Register) Level(b Bank) int {
	l := bankLayout[b]
	bits := (r.image & b.mask()) >> l.offset
	n := 0
	for bits&1 == 1 {
		n++
		bits >>= 1
	}
	return n
}

// Image returns the current 24-bit image.
func (r *Register) Image() uint32 {
	return r.image
}

// String renders every bank level, e.g. "temperature=4 pollution=6 energy=6 sun=0".
func (r *Register) String() string {
	parts := make([]string, 0, len(bankLayout))
	for _, b := range Banks() {
		parts = append(parts, fmt.Sprintf("%s=%d", b, r.Level(b)))
	}
	return strings.Join(parts, " ")
}
