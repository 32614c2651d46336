// Package explorer holds the short-lived state of one connection form: the
// tables found by a test connection and the table currently described. None
// of it is cached or shared between sessions.
package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"apicatalog/internal/apiclient"
	"apicatalog/internal/introspect"
	"apicatalog/internal/logger"
	"apicatalog/internal/model"
)

// State is the describe state of the selected table.
type State int

const (
	Collapsed State = iota
	Loading
	Expanded
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Expanded:
		return "expanded"
	default:
		return "collapsed"
	}
}

// ErrSuperseded is returned by a test connection that a newer one, or Close,
// replaced before it finished. Such a call leaves the session untouched.
var ErrSuperseded = errors.New("superseded by a newer request")

// Session is the exploration state of one connection form. Test connection
// and describe are each keyed: a new call cancels the one in flight.
type Session struct {
	client *apiclient.Client

	mu         sync.RWMutex
	form       model.RestApiInput
	tables     []string
	testing    bool
	testSeq    uint64
	testCancel context.CancelFunc

	table     string
	state     State
	structure introspect.TableStructure
	seq       uint64
	cancel    context.CancelFunc
}

// NewSession returns an empty session talking to the backend through client.
func NewSession(client *apiclient.Client) *Session {
	return &Session{client: client, tables: []string{}}
}

// SetForm replaces the connection form. Results from the previous form are
// kept until the next test connection.
func (s *Session) SetForm(in model.RestApiInput) {
	s.mu.Lock()
	s.form = in
	s.mu.Unlock()
}

func (s *Session) Form() model.RestApiInput {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form
}

func (s *Session) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.tables...)
}

// Selected returns the table being described and its state.
func (s *Session) Selected() (string, State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table, s.state
}

// Structure returns the columns of the expanded table, or nil.
func (s *Session) Structure() introspect.TableStructure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.structure == nil {
		return nil
	}
	return append(introspect.TableStructure{}, s.structure...)
}

func (s *Session) LoadingTables() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.testing
}

func (s *Session) LoadingStructure() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Loading
}

func (s *Session) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.testing || s.state == Loading
}

type testConnResponse struct {
	Tables []json.RawMessage `json:"tables"`
}

// TestConnection checks the form and asks the backend for the table list of
// the database it points at. On any failure the table list is emptied. A call
// replaced by a newer one returns ErrSuperseded and changes nothing.
func (s *Session) TestConnection(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	s.resetLocked()
	params, err := s.form.Params()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.testCancel = cancel
	token := s.testSeq
	s.testing = true
	s.mu.Unlock()
	defer cancel()

	var res testConnResponse
	err = s.client.Post(ctx, "/testconn", params, &res)
	var names []string
	if err == nil {
		names, err = parseTableNames(res.Tables)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.testSeq {
		return nil, ErrSuperseded
	}
	s.testing, s.testCancel = false, nil
	if err != nil {
		logger.With(logger.Fields{"op": "test connection", "engine": params.Engine, "ip": params.IP}).Warnf("failed: %v", err)
		return nil, fmt.Errorf("test connection: %w", err)
	}
	s.tables = names
	return append([]string{}, names...), nil
}

// resetLocked cancels both keyed operations and clears their results.
func (s *Session) resetLocked() {
	if s.testCancel != nil {
		s.testCancel()
		s.testCancel = nil
	}
	s.testSeq++
	s.testing = false
	s.tables = []string{}
	s.collapseLocked()
}

func (s *Session) collapseLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	s.table, s.state, s.structure = "", Collapsed, nil
}

type describeResponse struct {
	Structure introspect.TableStructure `json:"structure"`
}

// ToggleTable expands table, or collapses it when it is already the selected
// one. Expanding always fetches the structure again. Selecting a different
// table cancels the describe of the previous one; a cancelled describe
// returns nil and changes nothing.
func (s *Session) ToggleTable(ctx context.Context, table string) error {
	s.mu.Lock()
	if s.table == table && s.state != Collapsed {
		s.collapseLocked()
		s.mu.Unlock()
		return nil
	}
	params, err := s.form.Params()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.collapseLocked()
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	token := s.seq
	s.table, s.state = table, Loading
	s.mu.Unlock()
	defer cancel()

	var res describeResponse
	err = s.client.Post(ctx, "/describe", model.DescribeRequest{ConnectionParams: params, Table: table}, &res)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		return nil
	}
	s.cancel = nil
	if err != nil {
		s.table, s.state, s.structure = "", Collapsed, nil
		logger.With(logger.Fields{"op": "describe", "table": table}).Warnf("failed: %v", err)
		return fmt.Errorf("describe %s: %w", table, err)
	}
	if res.Structure == nil {
		res.Structure = introspect.TableStructure{}
	}
	s.state, s.structure = Expanded, res.Structure
	return nil
}

// Close cancels whatever is in flight and clears the session.
func (s *Session) Close() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

// parseTableNames accepts rows that are plain strings or single-column
// objects such as {"Tables_in_db": "users"}. For objects the first value in
// document order is the name.
func parseTableNames(rows []json.RawMessage) ([]string, error) {
	names := make([]string, 0, len(rows))
	for i, raw := range rows {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			return nil, fmt.Errorf("table %d: empty row", i)
		}
		switch raw[0] {
		case '"':
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return nil, fmt.Errorf("table %d: %w", i, err)
			}
			names = append(names, name)
		case '{':
			name, err := firstValue(raw)
			if err != nil {
				return nil, fmt.Errorf("table %d: %w", i, err)
			}
			names = append(names, name)
		default:
			return nil, fmt.Errorf("table %d: unsupported row %s", i, raw)
		}
	}
	return names, nil
}

func firstValue(obj json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return "", err
	}
	if !dec.More() {
		return "", fmt.Errorf("empty object")
	}
	if _, err := dec.Token(); err != nil {
		return "", err
	}
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("table name is not a string: %v", tok)
	}
}
