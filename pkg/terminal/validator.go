package terminal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/antibyte/kscr/pkg/shared"
)

// Sicherheitsgrenzen für eingehende Nachrichten
const (
	MaxMessageBytes  = 512 * 1024
	MaxScriptNameLen = 64
)

var (
	ErrMessageTooLarge  = errors.New("message too large")
	ErrUnknownType      = errors.New("unknown message type")
	ErrInvalidName      = errors.New("invalid script name")
	ErrMissingSource    = errors.New("missing source")
	ErrAmbiguousRequest = errors.New("either name or source expected")
)

var scriptNamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// MessageValidator decodes and checks client messages
type MessageValidator struct {
	MaxBytes     int
	MaxSourceLen int
}

// NewMessageValidator erstellt einen neuen Validator
func NewMessageValidator(maxSourceLen int) *MessageValidator {
	return &MessageValidator{
		MaxBytes:     MaxMessageBytes,
		MaxSourceLen: maxSourceLen,
	}
}

// Decode parses data strictly and validates the fields required by its type.
func (v *MessageValidator) Decode(data []byte) (shared.Message, error) {
	var msg shared.Message
	if len(data) > v.MaxBytes {
		return msg, ErrMessageTooLarge
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&msg); err != nil {
		return msg, fmt.Errorf("invalid JSON: %w", err)
	}
	return msg, v.Validate(msg)
}

// Validate checks a decoded client message
func (v *MessageValidator) Validate(msg shared.Message) error {
	switch msg.Type {
	case shared.MessageTypeRun:
		if (msg.Name == "") == (msg.Source == "") {
			return ErrAmbiguousRequest
		}
		if msg.Name != "" {
			return validateScriptName(msg.Name)
		}
		return v.validateSource(msg.Source)
	case shared.MessageTypeSave:
		if err := validateScriptName(msg.Name); err != nil {
			return err
		}
		if msg.Source == "" {
			return ErrMissingSource
		}
		return v.validateSource(msg.Source)
	case shared.MessageTypeList:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrUnknownType, msg.Type)
}

func (v *MessageValidator) validateSource(src string) error {
	if v.MaxSourceLen > 0 && len(src) > v.MaxSourceLen {
		return fmt.Errorf("%w: source has %d bytes, limit %d", ErrMessageTooLarge, len(src), v.MaxSourceLen)
	}
	return nil
}

func validateScriptName(name string) error {
	if len(name) == 0 || len(name) > MaxScriptNameLen || !scriptNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
