package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ruralpay/payment-engine/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrRowShape      = errors.New("expected 3 or 4 fields")
	ErrInvalidClient = errors.New("client id is not a valid u16")
	ErrInvalidTx     = errors.New("transaction id is not a valid u32")
	ErrInvalidAmount = errors.New("amount is not a valid decimal")
)

// rawEvent is an input row before type conversion.
type rawEvent struct {
	Type   string
	Client string `validate:"required,number"`
	Tx     string `validate:"required,number"`
	Amount string `validate:"required_if=Type deposit,required_if=Type withdrawal"`
}

// EventReader turns delimited rows of "type, client, tx, amount" into events.
// Every field is trimmed. Rows with a missing trailing amount column are
// accepted so dispute-lifecycle rows may omit it.
type EventReader struct {
	csv       *csv.Reader
	validator *ValidationHelper
	hasHeader bool
	started   bool
}

func NewEventReader(r io.Reader, hasHeader bool) *EventReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	return &EventReader{
		csv:       cr,
		validator: NewValidationHelper(),
		hasHeader: hasHeader,
	}
}

// Next returns the next event. It returns io.EOF once the input is exhausted,
// a *RecordError for a row that must be skipped, and any other error when the
// underlying reader fails.
func (r *EventReader) Next() (models.Event, error) {
	if !r.started {
		r.started = true
		if r.hasHeader {
			if _, err := r.csv.Read(); err != nil {
				var perr *csv.ParseError
				if !errors.As(err, &perr) {
					return models.Event{}, err
				}
			}
		}
	}

	record, err := r.csv.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return models.Event{}, &RecordError{Line: perr.StartLine, Err: perr.Err}
		}
		return models.Event{}, err
	}

	line, _ := r.csv.FieldPos(0)
	ev, err := r.parse(record)
	if err != nil {
		return models.Event{}, &RecordError{Line: line, Err: err}
	}
	ev.Line = line
	return ev, nil
}

func (r *EventReader) parse(record []string) (models.Event, error) {
	if len(record) != 3 && len(record) != 4 {
		return models.Event{}, fmt.Errorf("%w, got %d", ErrRowShape, len(record))
	}

	raw := rawEvent{
		Type:   strings.TrimSpace(record[0]),
		Client: strings.TrimSpace(record[1]),
		Tx:     strings.TrimSpace(record[2]),
	}
	if len(record) == 4 {
		raw.Amount = strings.TrimSpace(record[3])
	}
	if err := r.validator.ValidateStruct(&raw); err != nil {
		return models.Event{}, Describe(err)
	}

	client, err := strconv.ParseUint(raw.Client, 10, 16)
	if err != nil {
		return models.Event{}, fmt.Errorf("%w: %q", ErrInvalidClient, raw.Client)
	}
	tx, err := strconv.ParseUint(raw.Tx, 10, 32)
	if err != nil {
		return models.Event{}, fmt.Errorf("%w: %q", ErrInvalidTx, raw.Tx)
	}

	amount := decimal.Zero
	if raw.Amount != "" {
		amount, err = decimal.NewFromString(raw.Amount)
		if err != nil {
			return models.Event{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw.Amount)
		}
	}

	return models.Event{
		Type:          models.EventType(raw.Type),
		ClientID:      uint16(client),
		TransactionID: uint32(tx),
		Amount:        amount,
	}, nil
}
