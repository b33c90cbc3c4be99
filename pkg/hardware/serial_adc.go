package hardware

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"
)

// PortOpener opens the serial port of an ADC bridge.
type PortOpener func(c *serial.Config) (io.ReadWriteCloser, error)

// OpenSerialPort opens a real serial port.
func OpenSerialPort(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.OpenPort(c)
}

// SerialADC is a microcontroller ADC bridge on a serial port. The bridge answers
// "READ <channel>\n" with a single decimal line. One port serves every channel.
type SerialADC struct {
	config *serial.Config
	open   PortOpener

	port   io.ReadWriteCloser
	reader *bufio.Reader
}

// NewSerialADC creates a bridge. Nothing is opened until Init.
func NewSerialADC(portName string, baudRate int, readTimeout time.Duration, open PortOpener) *SerialADC {
	if open == nil {
		open = OpenSerialPort
	}
	return &SerialADC{
		config: &serial.Config{Name: portName, Baud: baudRate, ReadTimeout: readTimeout},
		open:   open,
	}
}

// Channel returns a MeasurementSource for one input of the bridge. Closing it leaves
// the shared port open; the bridge owner closes that.
func (s *SerialADC) Channel(channel int) MeasurementSource {
	return &adcChannel{adc: s, channel: channel}
}

// Init opens the serial port. It is a no-op when the port is already open.
func (s *SerialADC) Init() error {
	if s.port != nil {
		return nil
	}
	port, err := s.open(s.config)
	if err != nil {
		return fmt.Errorf("failed to open ADC port %s: %w", s.config.Name, err)
	}
	s.port = port
	s.reader = bufio.NewReader(port)
	return nil
}

// ReadChannel requests one conversion and parses the reply.
func (s *SerialADC) ReadChannel(channel int) (int, error) {
	if s.port == nil {
		return 0, ErrNotInitialized
	}

	if _, err := fmt.Fprintf(s.port, "READ %d\n", channel); err != nil {
		return 0, fmt.Errorf("failed to request channel %d: %w", channel, err)
	}

	line, err := s.reader.ReadString('\n')
	if err != nil {
		s.resync()
		return 0, fmt.Errorf("failed to read channel %d: %w", channel, err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		s.resync()
		return 0, fmt.Errorf("invalid reading %q on channel %d: %w", strings.TrimSpace(line), channel, err)
	}
	return value, nil
}

// resync drops whatever is left of a broken reply so the next request pairs with its
// own answer.
func (s *SerialADC) resync() {
	s.reader.Reset(s.port)
	if f, ok := s.port.(flusher); ok {
		_ = f.Flush()
	}
}

// flusher is implemented by *serial.Port: it discards input not yet read.
type flusher interface {
	Flush() error
}

// Close releases the port. It is safe to call when Init failed.
func (s *SerialADC) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.reader = nil
	return err
}

type adcChannel struct {
	adc     *SerialADC
	channel int
}

func (c *adcChannel) Init() error        { return c.adc.Init() }
func (c *adcChannel) Read() (int, error) { return c.adc.ReadChannel(c.channel) }
func (c *adcChannel) Close() error       { return nil }
