package plugins

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOController owns the BGT60 reset and IRQ lines.
//
// The reset line is requested as an output idling high. The IRQ line is an
// input with rising-edge detection; edges are latched into a one-slot
// channel so an edge that arrives before the driver starts waiting is not
// lost, while a burst of edges collapses into one.
type GPIOController struct {
	chip      *gpiocdev.Chip
	resetLine *gpiocdev.Line
	irqLine   *gpiocdev.Line
	chipPath  string
	resetPin  int
	irqPin    int

	edges    chan struct{}
	dropped  atomic.Uint64
	received atomic.Uint64
}

// NewGPIOController creates a new GPIO controller
func NewGPIOController(chipPath string, resetPin int, irqPin int) (*GPIOController, error) {
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipPath, err)
	}

	g := &GPIOController{
		chip:     chip,
		chipPath: chipPath,
		resetPin: resetPin,
		irqPin:   irqPin,
		edges:    make(chan struct{}, 1),
	}

	resetLine, err := chip.RequestLine(
		resetPin,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer("bgt60-reset"),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request reset pin %d: %w", resetPin, err)
	}
	g.resetLine = resetLine

	irqLine, err := chip.RequestLine(
		irqPin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(g.handleEvent),
		gpiocdev.WithConsumer("bgt60-irq"),
	)
	if err != nil {
		resetLine.Close()
		chip.Close()
		return nil, fmt.Errorf("failed to request IRQ pin %d: %w", irqPin, err)
	}
	g.irqLine = irqLine

	return g, nil
}

func (g *GPIOController) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventRisingEdge {
		return
	}
	g.received.Add(1)
	select {
	case g.edges <- struct{}{}:
	default:
		g.dropped.Add(1)
	}
}

// Close releases all GPIO resources
func (g *GPIOController) Close() error {
	var errs []error

	if g.irqLine != nil {
		if err := g.irqLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close IRQ line: %w", err))
		}
		g.irqLine = nil
	}

	if g.resetLine != nil {
		if err := g.resetLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close reset line: %w", err))
		}
		g.resetLine = nil
	}

	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close GPIO chip: %w", err))
		}
		g.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing GPIO: %v", errs)
	}
	return nil
}

// ResetPin returns the reset line as a bgt60.OutputPin.
func (g *GPIOController) ResetPin() *GPIOResetPin { return &GPIOResetPin{g: g} }

// IRQPin returns the IRQ line as a bgt60.InterruptPin.
func (g *GPIOController) IRQPin() *GPIOIRQPin { return &GPIOIRQPin{g: g} }

// GPIOResetPin drives the reset line.
type GPIOResetPin struct{ g *GPIOController }

func (p *GPIOResetPin) set(v int) error {
	if p.g.resetLine == nil {
		return fmt.Errorf("reset line not initialized")
	}
	if err := p.g.resetLine.SetValue(v); err != nil {
		return fmt.Errorf("failed to set reset pin to %d: %w", v, err)
	}
	return nil
}

func (p *GPIOResetPin) SetHigh() error { return p.set(1) }
func (p *GPIOResetPin) SetLow() error  { return p.set(0) }

// GPIOIRQPin waits for latched rising edges on the IRQ line.
type GPIOIRQPin struct{ g *GPIOController }

// WaitForRisingEdge returns once an edge has been seen since the previous
// call, or when ctx is done.
func (p *GPIOIRQPin) WaitForRisingEdge(ctx context.Context) error {
	if p.g.irqLine == nil {
		return fmt.Errorf("IRQ line not initialized")
	}
	select {
	case <-p.g.edges:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain discards a latched edge, e.g. after a FIFO reset.
func (g *GPIOController) Drain() {
	select {
	case <-g.edges:
	default:
	}
}

// IRQLevel reads the current level of the IRQ line.
func (g *GPIOController) IRQLevel() (bool, error) {
	if g.irqLine == nil {
		return false, fmt.Errorf("IRQ line not initialized")
	}
	v, err := g.irqLine.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read IRQ pin: %w", err)
	}
	return v == 1, nil
}

// Info returns information about the GPIO controller
func (g *GPIOController) Info() map[string]interface{} {
	info := map[string]interface{}{
		"chip":      g.chipPath,
		"reset_pin": g.resetPin,
		"irq_pin":   g.irqPin,
		"edges":     g.received.Load(),
		"coalesced": g.dropped.Load(),
	}
	if g.chip != nil {
		info["name"] = g.chip.Name
		info["label"] = g.chip.Label
	}
	return info
}

// ValidateGPIOPin checks if a specific pin number is valid for the chip
func ValidateGPIOPin(chipPath string, pin int) error {
	if pin < 0 {
		return fmt.Errorf("invalid pin %d: must be non-negative", pin)
	}
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return fmt.Errorf("cannot access GPIO chip %s: %w", chipPath, err)
	}
	defer chip.Close()

	info, err := chip.LineInfo(pin)
	if err != nil {
		return fmt.Errorf("invalid pin %d for chip %s: %w", pin, chipPath, err)
	}
	if info.Used {
		return fmt.Errorf("pin %d on %s is in use by %q", pin, chipPath, info.Consumer)
	}
	return nil
}
