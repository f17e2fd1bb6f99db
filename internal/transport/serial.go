package transport

import (
	"fmt"
	"time"

	"github.com/xtxerr/chemlogger/config"
	"github.com/xtxerr/chemlogger/internal/errors"
	"github.com/xtxerr/chemlogger/internal/logging"
	"go.bug.st/serial"
)

var log = logging.Component("transport")

// SerialConfig holds the connection parameters of the instrument.
type SerialConfig struct {
	// Port is the device path, e.g. /dev/ttyACM0 or COM3.
	Port string

	// BaudRate of the link. The instrument firmware uses 9600.
	BaudRate int

	// DataBits per frame (5-8).
	DataBits int

	// ResetOnOpen toggles DTR after opening, which restarts boards that
	// reset on DTR (Arduino and clones), and discards whatever the
	// device sent before the reset.
	ResetOnOpen bool

	// ResetDelay is how long DTR is held low.
	ResetDelay time.Duration

	// MaxLineBytes bounds a single record.
	MaxLineBytes int
}

// DefaultSerialConfig returns the parameters of the reference instrument.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		Port:         config.DefaultSerialPort,
		BaudRate:     config.DefaultBaudRate,
		DataBits:     config.DefaultDataBits,
		ResetOnOpen:  true,
		ResetDelay:   config.DefaultResetDelay,
		MaxLineBytes: config.DefaultMaxLineBytes,
	}
}

// Validate checks the connection parameters.
func (c SerialConfig) Validate() error {
	errs := errors.NewValidationErrors()
	if c.Port == "" {
		errs.AddMissing("serial.port")
	}
	if c.BaudRate <= 0 {
		errs.AddField("serial.baud", "must be positive")
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		errs.AddField("serial.data_bits", "must be between 5 and 8")
	}
	if c.ResetDelay < 0 {
		errs.AddField("serial.reset_delay", "cannot be negative")
	}
	return errs.Err()
}

// Serial is a Transport over a serial port.
type Serial struct {
	*Stream
	port serial.Port
	cfg  SerialConfig
}

// OpenSerial opens the port, performs the reset handshake if configured,
// and returns a ready transport.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, errors.Join(errors.ErrTransportFault, err))
	}

	if cfg.ResetOnOpen {
		if err := resetDevice(port, cfg.ResetDelay, time.Sleep); err != nil {
			port.Close()
			return nil, fmt.Errorf("reset device on %s: %w", cfg.Port, errors.Join(errors.ErrTransportFault, err))
		}
	}

	log.Info("serial port open", "port", cfg.Port, "baud", cfg.BaudRate, "reset", cfg.ResetOnOpen)

	return &Serial{
		Stream: NewStreamSize(port, cfg.MaxLineBytes),
		port:   port,
		cfg:    cfg,
	}, nil
}

// Port returns the device path.
func (s *Serial) Port() string {
	return s.cfg.Port
}

// resettable is the part of serial.Port the handshake needs.
type resettable interface {
	SetDTR(dtr bool) error
	ResetInputBuffer() error
}

// resetDevice drops DTR, waits, discards buffered input and raises DTR
// again so the device restarts and the first line read is a fresh one.
func resetDevice(port resettable, delay time.Duration, sleep func(time.Duration)) error {
	if err := port.SetDTR(false); err != nil {
		return fmt.Errorf("clear DTR: %w", err)
	}
	sleep(delay)
	if err := port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("flush input: %w", err)
	}
	if err := port.SetDTR(true); err != nil {
		return fmt.Errorf("set DTR: %w", err)
	}
	return nil
}
