package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsStore keeps documents in a Google spreadsheet, one row per document:
// column A the collection path, B the document id, C the JSON field blob.
// Sheets has no push channel, so subscriptions are served by polling: each
// tick re-reads the sheet and publishes collections whose content changed.
type SheetsStore struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	pollInterval  time.Duration

	hub *hub

	mu          sync.Mutex
	lastSeen    map[string]string
	pollStarted bool
	pollStop    chan struct{}
	closeOnce   sync.Once
}

var _ Store = (*SheetsStore)(nil)
var _ Refresher = (*SheetsStore)(nil)

// NewSheetsStoreFromEnv builds a sheets-backed store using service account
// credentials. Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetsStoreFromEnv(ctx context.Context, sheetName string, pollInterval time.Duration) (*SheetsStore, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if sheetName == "" {
		sheetName = "Documents"
	}
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		pollInterval:  pollInterval,
		hub:           newHub(),
		lastSeen:      make(map[string]string),
		pollStop:      make(chan struct{}),
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (s *SheetsStore) Create(ctx context.Context, path string, fields map[string]any) (Document, error) {
	blob, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("marshal fields: %w", err)
	}

	id := uuid.NewString()
	rng := fmt.Sprintf("%s!A:C", s.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{{path, id, string(blob)}}}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return Document{}, fmt.Errorf("append document row: %w", err)
	}

	slog.InfoContext(ctx, "Document created", "collection", path, "doc_id", id, "backend", "sheets")
	s.Refresh(path)
	return Document{ID: id, Fields: copyFields(fields)}, nil
}

func (s *SheetsStore) UpdateByID(ctx context.Context, path, id string, fields map[string]any) error {
	blob, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	row, err := s.findRow(ctx, path, id)
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A%d:C%d", s.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{path, id, string(blob)}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update document row %d: %w", row, err)
	}

	s.Refresh(path)
	return nil
}

func (s *SheetsStore) DeleteByID(ctx context.Context, path, id string) error {
	row, err := s.findRow(ctx, path, id)
	if err != nil {
		return err
	}

	// Blank the row instead of deleting it so other row indices stay valid;
	// loads skip blank rows.
	rng := fmt.Sprintf("%s!A%d:C%d", s.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{"", "", ""}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("blank document row %d: %w", row, err)
	}

	s.Refresh(path)
	return nil
}

func (s *SheetsStore) SubscribeCollection(path string, fn func([]Document)) (func(), error) {
	docs, err := s.load(path)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot of %s: %w", path, err)
	}

	unsubscribe := s.hub.subscribe(path, fn)
	s.startPolling()
	fn(docs)
	return unsubscribe, nil
}

// Refresh implements Refresher.
func (s *SheetsStore) Refresh(path string) {
	s.hub.refresh(path, func(p string) ([]Document, error) {
		docs, err := s.load(p)
		if err == nil {
			s.remember(p, docs)
		}
		return docs, err
	})
}

// Close stops the polling goroutine.
func (s *SheetsStore) Close() error {
	s.closeOnce.Do(func() { close(s.pollStop) })
	return nil
}

func (s *SheetsStore) startPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollStarted {
		return
	}
	s.pollStarted = true
	go s.pollLoop()
}

func (s *SheetsStore) pollLoop() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.pollStop:
			return
		case <-ticker.C:
			for _, path := range s.hub.paths() {
				docs, err := s.load(path)
				if err != nil {
					slog.Warn("Sheets poll failed", "collection", path, "error", err)
					continue
				}
				if s.changed(path, docs) {
					s.remember(path, docs)
					s.hub.publish(path, docs)
				}
			}
		}
	}
}

func (s *SheetsStore) changed(path string, docs []Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen[path] != fingerprint(docs)
}

func (s *SheetsStore) remember(path string, docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[path] = fingerprint(docs)
}

func fingerprint(docs []Document) string {
	var b strings.Builder
	for _, d := range docs {
		blob, _ := json.Marshal(d.Fields)
		b.WriteString(d.ID)
		b.WriteByte(':')
		b.Write(blob)
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *SheetsStore) load(path string) ([]Document, error) {
	rows, err := s.readAll(context.Background())
	if err != nil {
		return nil, err
	}
	var docs []Document
	for _, row := range rows {
		if row.collection != path {
			continue
		}
		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(row.fields), &fields); err != nil {
			slog.Warn("Skipping undecodable sheet row", "collection", path, "doc_id", row.id, "error", err)
			continue
		}
		docs = append(docs, Document{ID: row.id, Fields: fields})
	}
	return docs, nil
}

type sheetRow struct {
	index      int // 1-based spreadsheet row
	collection string
	id         string
	fields     string
}

func (s *SheetsStore) readAll(ctx context.Context) ([]sheetRow, error) {
	rng := fmt.Sprintf("%s!A:C", s.sheetName)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	var rows []sheetRow
	for i, raw := range resp.Values {
		if len(raw) < 3 {
			continue
		}
		row := sheetRow{
			index:      i + 1,
			collection: strings.TrimSpace(fmt.Sprint(raw[0])),
			id:         strings.TrimSpace(fmt.Sprint(raw[1])),
			fields:     fmt.Sprint(raw[2]),
		}
		if row.collection == "" || row.id == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *SheetsStore) findRow(ctx context.Context, path, id string) (int, error) {
	rows, err := s.readAll(ctx)
	if err != nil {
		return 0, err
	}
	return matchRow(rows, path, id)
}

func matchRow(rows []sheetRow, path, id string) (int, error) {
	for _, row := range rows {
		if row.collection == path && row.id == id {
			return row.index, nil
		}
	}
	return 0, fmt.Errorf("document %s/%s in sheet: %w", path, id, ErrNotFound)
}
