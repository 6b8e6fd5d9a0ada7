package publish

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// Serial writes every line to a serial port, for feeding chartplotters or
// other hardware that expects NMEA 0183 on a wire.
type Serial struct {
	port serial.Port
	log  zerolog.Logger
}

// NewSerial opens the device at the given baud rate with 8N1 framing.
func NewSerial(device string, baudRate int, log zerolog.Logger) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", device, err)
	}
	log.Info().Str("device", device).Int("baud", baudRate).Msg("serial sink opened")
	return &Serial{port: port, log: log}, nil
}

// Publish writes one sentence. Errors are logged and dropped.
func (s *Serial) Publish(line string) {
	if _, err := s.port.Write([]byte(line)); err != nil {
		s.log.Warn().Err(err).Msg("serial write failed")
	}
}

// Close releases the port.
func (s *Serial) Close() error {
	return s.port.Close()
}
