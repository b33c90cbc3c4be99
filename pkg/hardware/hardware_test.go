package hardware_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
	gpio "github.com/temoto/gpio-cdev-go"
	gpio_mock "github.com/temoto/gpio-cdev-go/mock"

	"github.com/benmeehan/soil-node/pkg/hardware"
)

// fakePort is an ADC bridge that answers every request with the next scripted line.
type fakePort struct {
	requests bytes.Buffer
	replies  io.Reader
	closed   bool
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.replies.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.requests.Write(b) }
func (p *fakePort) Close() error                { p.closed = true; return nil }

func TestSerialADC_Read(t *testing.T) {
	port := &fakePort{replies: strings.NewReader("360\r\n 2048\n")}
	var opened *serial.Config
	opens := 0
	adc := hardware.NewSerialADC("/dev/ttyUSB0", 115200, time.Second,
		func(c *serial.Config) (io.ReadWriteCloser, error) {
			opened = c
			opens++
			return port, nil
		})
	moisture := adc.Channel(13)
	battery := adc.Channel(14)

	require.NoError(t, moisture.Init())
	require.NoError(t, battery.Init())
	first, err := moisture.Read()
	require.NoError(t, err)
	second, err := battery.Read()
	require.NoError(t, err)
	require.NoError(t, moisture.Close())

	assert.Equal(t, 360, first)
	assert.Equal(t, 2048, second)
	assert.Equal(t, 1, opens)
	assert.False(t, port.closed)
	assert.Equal(t, "READ 13\nREAD 14\n", port.requests.String())
	assert.Equal(t, "/dev/ttyUSB0", opened.Name)
	assert.Equal(t, 115200, opened.Baud)

	require.NoError(t, adc.Close())
	assert.True(t, port.closed)
}

func TestSerialADC_InitFailure(t *testing.T) {
	adc := hardware.NewSerialADC("/dev/missing", 9600, time.Second,
		func(c *serial.Config) (io.ReadWriteCloser, error) {
			return nil, errors.New("no such device")
		})
	source := adc.Channel(1)

	assert.Error(t, source.Init())
	_, err := source.Read()
	assert.ErrorIs(t, err, hardware.ErrNotInitialized)
	assert.NoError(t, adc.Close())
}

// chunkedPort delivers one scripted chunk per Read. Flush drops the chunk that is
// in flight, like a serial driver discarding its input queue.
type chunkedPort struct {
	chunks   []chunk
	requests bytes.Buffer
	flushes  int
}

type chunk struct {
	data string
	err  error
}

func (p *chunkedPort) Read(b []byte) (int, error) {
	if len(p.chunks) == 0 {
		return 0, io.EOF
	}
	next := p.chunks[0]
	p.chunks = p.chunks[1:]
	return copy(b, next.data), next.err
}

func (p *chunkedPort) Write(b []byte) (int, error) { return p.requests.Write(b) }
func (p *chunkedPort) Close() error                { return nil }

func (p *chunkedPort) Flush() error {
	p.flushes++
	if len(p.chunks) > 0 {
		p.chunks = p.chunks[1:]
	}
	return nil
}

func TestSerialADC_TimeoutDropsPartialReply(t *testing.T) {
	// Setup
	port := &chunkedPort{chunks: []chunk{
		{data: "12"},
		{err: errors.New("read timeout")},
		{data: "3\n"},
		{data: "2048\n"},
	}}
	adc := hardware.NewSerialADC("/dev/ttyUSB0", 9600, time.Second,
		func(c *serial.Config) (io.ReadWriteCloser, error) { return port, nil })
	require.NoError(t, adc.Init())

	// Execute
	_, firstErr := adc.ReadChannel(13)
	value, err := adc.ReadChannel(14)

	// Assert
	assert.Error(t, firstErr)
	require.NoError(t, err)
	assert.Equal(t, 2048, value)
	assert.Equal(t, 1, port.flushes)
	assert.Equal(t, "READ 13\nREAD 14\n", port.requests.String())
}

func TestSerialADC_InvalidReplyResyncs(t *testing.T) {
	port := &chunkedPort{chunks: []chunk{
		{data: "ERR\n"},
		{data: "stale\n"},
		{data: "512\n"},
	}}
	adc := hardware.NewSerialADC("/dev/ttyUSB0", 9600, time.Second,
		func(c *serial.Config) (io.ReadWriteCloser, error) { return port, nil })
	require.NoError(t, adc.Init())

	_, err := adc.ReadChannel(2)
	require.Error(t, err)

	value, err := adc.ReadChannel(2)
	require.NoError(t, err)
	assert.Equal(t, 512, value)
}

func TestSerialADC_InvalidReply(t *testing.T) {
	port := &fakePort{replies: strings.NewReader("ERR\n")}
	adc := hardware.NewSerialADC("/dev/ttyUSB0", 9600, time.Second,
		func(c *serial.Config) (io.ReadWriteCloser, error) { return port, nil })

	require.NoError(t, adc.Init())
	_, err := adc.ReadChannel(2)

	assert.Error(t, err)
}

func TestGPIOPowerGate_Toggle(t *testing.T) {
	chip := new(gpio_mock.MockChip)
	lines := new(gpio_mock.MockLines)
	var values []byte

	chip.On("OpenLines", gpio.GPIOHANDLE_REQUEST_OUTPUT, hardware.ConsumerLabel, uint32(19)).Return(lines, nil)
	lines.On("SetFunc", uint32(19)).Return(gpio.LineSetFunc(func(v byte) { values = append(values, v) }))
	lines.On("Flush").Return(nil)
	lines.On("Close").Return(nil)

	gate, err := hardware.NewGPIOPowerGate(chip, 19)
	require.NoError(t, err)
	require.NoError(t, gate.Enable())
	require.NoError(t, gate.Disable())
	require.NoError(t, gate.Close())

	assert.Equal(t, []byte{0, 1, 0, 0}, values)
	chip.AssertExpectations(t)
	lines.AssertExpectations(t)
}

func TestGPIOPowerGate_FlushError(t *testing.T) {
	chip := new(gpio_mock.MockChip)
	lines := new(gpio_mock.MockLines)

	chip.On("OpenLines", gpio.GPIOHANDLE_REQUEST_OUTPUT, hardware.ConsumerLabel, uint32(4)).Return(lines, nil)
	lines.On("SetFunc", uint32(4)).Return(gpio.LineSetFunc(func(byte) {}))
	lines.On("Flush").Return(errors.New("ioctl failed"))
	lines.On("Close").Return(nil)

	_, err := hardware.NewGPIOPowerGate(chip, 4)

	assert.Error(t, err)
	lines.AssertCalled(t, "Close")
}

func TestGPIOIndicator_Show(t *testing.T) {
	chip := new(gpio_mock.MockChip)
	lines := new(gpio_mock.MockLines)
	var red, green byte

	chip.On("OpenLines", gpio.GPIOHANDLE_REQUEST_OUTPUT, hardware.ConsumerLabel, uint32(5), uint32(6)).Return(lines, nil)
	lines.On("SetFunc", uint32(5)).Return(gpio.LineSetFunc(func(v byte) { red = v }))
	lines.On("SetFunc", uint32(6)).Return(gpio.LineSetFunc(func(v byte) { green = v }))
	lines.On("Flush").Return(nil)

	indicator, err := hardware.NewGPIOIndicator(chip, 5, 6)
	require.NoError(t, err)

	require.NoError(t, indicator.Show(hardware.StatusNotJoined))
	assert.Equal(t, byte(1), red)
	assert.Equal(t, byte(0), green)

	require.NoError(t, indicator.Show(hardware.StatusReady))
	assert.Equal(t, byte(0), red)
	assert.Equal(t, byte(1), green)

	assert.Error(t, indicator.Show(hardware.Status("blinking")))
}

func TestLogIndicator_Show(t *testing.T) {
	var buf bytes.Buffer
	indicator := hardware.NewLogIndicator(zerolog.New(&buf))

	require.NoError(t, indicator.Show(hardware.StatusNotJoined))
	require.NoError(t, indicator.Show(hardware.StatusNotJoined))
	require.NoError(t, indicator.Show(hardware.StatusReady))

	assert.Equal(t, 2, strings.Count(buf.String(), "Status indicator changed"))
}
