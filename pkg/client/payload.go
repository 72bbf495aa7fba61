package client

import (
	"bytes"
	"mime/multipart"

	j "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Multipart part names understood by the registration API.
const (
	PartTickets          = "__tickets[]"
	PartUTM              = "__utm"
	PartLogID            = "log_id"
	PartNextButtonClick  = "is_next_btn_clk"
	PartTicketSelected   = "is_ticket_selected"
	defaultTicketCount   = 1
	logNextButtonClicked = "false"
	logTicketSelected    = "true"
)

// Payload is an encoded multipart body.
type Payload struct {
	Body        []byte
	ContentType string
}

// SubmitPayload encodes every form value followed by the ticket, UTM and
// optional log id parts.
func SubmitPayload(req SubmitRequest) (Payload, error) {
	return encodeParts(func(w *multipart.Writer) error {
		if err := writeValues(w, req.Data); err != nil {
			return err
		}
		if err := writeJSON(w, PartTickets, ticketSelection(req.TicketID)); err != nil {
			return err
		}
		if err := writeJSON(w, PartUTM, req.UTM); err != nil {
			return err
		}
		if req.LogID != "" {
			return w.WriteField(PartLogID, req.LogID)
		}
		return nil
	})
}

// LogPayload encodes the values for an incremental save along with the two
// fixed flags the log endpoint expects.
func LogPayload(req LogRequest) (Payload, error) {
	return encodeParts(func(w *multipart.Writer) error {
		if err := writeValues(w, req.Data); err != nil {
			return err
		}
		if err := writeJSON(w, PartTickets, ticketSelection(req.TicketID)); err != nil {
			return err
		}
		if req.LogID != "" {
			if err := w.WriteField(PartLogID, req.LogID); err != nil {
				return err
			}
		}
		if err := w.WriteField(PartNextButtonClick, logNextButtonClicked); err != nil {
			return err
		}
		return w.WriteField(PartTicketSelected, logTicketSelected)
	})
}

func ticketSelection(ticketID string) TicketSelection {
	return TicketSelection{TicketID: ticketID, Count: defaultTicketCount, MyTicket: true}
}

func encodeParts(write func(*multipart.Writer) error) (Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := write(w); err != nil {
		return Payload{}, err
	}
	if err := w.Close(); err != nil {
		return Payload{}, err
	}
	return Payload{Body: buf.Bytes(), ContentType: w.FormDataContentType()}, nil
}

func writeValues(w *multipart.Writer, data model.FormData) error {
	for _, key := range data.Keys() {
		if err := w.WriteField(key, data[key]); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w *multipart.Writer, name string, value any) error {
	encoded, err := j.Marshal(value)
	if err != nil {
		return err
	}
	return w.WriteField(name, string(encoded))
}
