package page

import (
	"bytes"
	"encoding/json"
	"fmt"

	"places/internal/models"
	"places/pkg/graphql"
)

// State is the listing view's status. The concrete types are Loading,
// Failed, Missing and Ready; no other type implements it.
type State interface {
	Name() string
	isState()
}

// Loading means the query was issued and has not resolved yet.
type Loading struct{}

// Failed means the query resolved with an error. Err is for diagnostics only.
type Failed struct {
	Err error
}

// Missing means the query resolved with neither an error nor data.
type Missing struct{}

// Ready holds the places in server order. It may be empty.
type Ready struct {
	Places []models.Place
}

func (Loading) Name() string { return "loading" }
func (Failed) Name() string  { return "failed" }
func (Missing) Name() string { return "missing" }
func (Ready) Name() string   { return "ready" }

func (Loading) isState() {}
func (Failed) isState()  {}
func (Missing) isState() {}
func (Ready) isState()   {}

// Terminal reports whether s can no longer change.
func Terminal(s State) bool {
	_, loading := s.(Loading)
	return !loading
}

// Resolve maps a query result to a terminal state. An error always wins,
// even when data came back with it.
func Resolve(res graphql.Result) State {
	if res.Err != nil {
		return Failed{Err: res.Err}
	}
	data := bytes.TrimSpace(res.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Missing{}
	}

	var out models.PlacesResult
	if err := json.Unmarshal(data, &out); err != nil {
		return Failed{Err: fmt.Errorf("decode places: %w", err)}
	}
	if out.Places == nil {
		out.Places = []models.Place{}
	}
	return Ready{Places: out.Places}
}
