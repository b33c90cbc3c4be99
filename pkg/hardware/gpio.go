package hardware

import (
	"fmt"

	gpio "github.com/temoto/gpio-cdev-go"
)

// ConsumerLabel names the node as the owner of its GPIO lines in the kernel.
const ConsumerLabel = "soil-node"

// GPIOPowerGate drives one output line of a GPIO character device.
type GPIOPowerGate struct {
	lines gpio.Lineser
	set   gpio.LineSetFunc
	line  uint32
}

// NewGPIOPowerGate requests line as an output and drives it low.
func NewGPIOPowerGate(chip gpio.Chiper, line uint32) (*GPIOPowerGate, error) {
	lines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, ConsumerLabel, line)
	if err != nil {
		return nil, fmt.Errorf("failed to open power line %d: %w", line, err)
	}

	g := &GPIOPowerGate{
		lines: lines,
		set:   lines.SetFunc(line),
		line:  line,
	}
	if err := g.Disable(); err != nil {
		lines.Close()
		return nil, err
	}
	return g, nil
}

func (g *GPIOPowerGate) Enable() error {
	return g.write(1)
}

func (g *GPIOPowerGate) Disable() error {
	return g.write(0)
}

func (g *GPIOPowerGate) write(value byte) error {
	g.set(value)
	if err := g.lines.Flush(); err != nil {
		return fmt.Errorf("failed to set power line %d=%d: %w", g.line, value, err)
	}
	return nil
}

// Close drives the line low and releases it.
func (g *GPIOPowerGate) Close() error {
	disableErr := g.Disable()
	if err := g.lines.Close(); err != nil {
		return err
	}
	return disableErr
}

// GPIOIndicator shows status on a red and a green LED.
type GPIOIndicator struct {
	lines     gpio.Lineser
	red       gpio.LineSetFunc
	green     gpio.LineSetFunc
	redLine   uint32
	greenLine uint32
}

// NewGPIOIndicator requests both LED lines as outputs.
func NewGPIOIndicator(chip gpio.Chiper, redLine, greenLine uint32) (*GPIOIndicator, error) {
	lines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, ConsumerLabel, redLine, greenLine)
	if err != nil {
		return nil, fmt.Errorf("failed to open indicator lines %d,%d: %w", redLine, greenLine, err)
	}
	return &GPIOIndicator{
		lines:     lines,
		red:       lines.SetFunc(redLine),
		green:     lines.SetFunc(greenLine),
		redLine:   redLine,
		greenLine: greenLine,
	}, nil
}

func (i *GPIOIndicator) Show(status Status) error {
	var red, green byte
	switch status {
	case StatusNotJoined, StatusResetting:
		red = 1
	case StatusReady:
		green = 1
	case StatusOff:
	default:
		return fmt.Errorf("unknown status %q", status)
	}

	i.red(red)
	i.green(green)
	return i.lines.Flush()
}

// Close turns both LEDs off and releases the lines.
func (i *GPIOIndicator) Close() error {
	offErr := i.Show(StatusOff)
	if err := i.lines.Close(); err != nil {
		return err
	}
	return offErr
}
