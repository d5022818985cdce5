package index

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/mostwanted/crawl"
	"github.com/pevans/mostwanted/persons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testResult() *persons.Result {
	result := persons.NewResult("UK_MWL", "UK Most Wanted", "https://www.example.gov.uk/most-wanted")
	result.Add(persons.Person{
		Firstname: "Jane",
		Lastname:  "Doe",
		General:   "Wanted for fraud in London.",
		Crime:     map[string]string{"crime": "Fraud"},
		About:     map[string]string{"height": "5'6\""},
		Other:     map[string]string{},
	})
	result.Add(persons.Person{
		Firstname: "John",
		Lastname:  "Smith",
		General:   "Wanted for robbery.",
		Crime:     map[string]string{"crime": "Robbery"},
	})
	return result
}

func TestParseIDScheme(t *testing.T) {
	scheme, err := ParseIDScheme("")
	require.NoError(t, err)
	assert.Equal(t, IDStable, scheme)

	scheme, err = ParseIDScheme("positional")
	require.NoError(t, err)
	assert.Equal(t, IDPositional, scheme)

	_, err = ParseIDScheme("random")
	assert.ErrorIs(t, err, ErrInvalidIDScheme)
}

func TestPersonID(t *testing.T) {
	jane := persons.Person{Firstname: "Jane", Lastname: "Doe"}

	stable := PersonID(IDStable, "UK_MWL", 0, jane)
	assert.Equal(t, stable, PersonID(IDStable, "UK_MWL", 7, jane), "stable IDs ignore position")
	assert.NotEqual(t, stable, PersonID(IDStable, "FR_MWL", 0, jane))

	assert.Equal(t, "UK_MWL-1", PersonID(IDPositional, "UK_MWL", 0, jane))
	assert.Equal(t, "UK_MWL-3", PersonID(IDPositional, "UK_MWL", 2, jane))
}

func TestStore_LoadAndGet(t *testing.T) {
	store := setupTestStore(t)

	n, err := store.Load(testResult(), IDStable)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	id := PersonID(IDStable, "UK_MWL", 0, persons.Person{Firstname: "Jane", Lastname: "Doe"})
	doc, err := store.Get(id)
	require.NoError(t, err)

	assert.Equal(t, "UK_MWL", doc.SourceCode)
	assert.Equal(t, 1, doc.Position)
	assert.Equal(t, "Jane", doc.Firstname)
	assert.Equal(t, map[string]string{"crime": "Fraud"}, doc.Crime)
	assert.Equal(t, map[string]string{"height": "5'6\""}, doc.About)
	assert.NotNil(t, doc.Other)
	assert.WithinDuration(t, time.Now(), doc.IndexedAt, time.Minute)

	smith, err := store.Get(PersonID(IDStable, "UK_MWL", 1, persons.Person{Firstname: "John", Lastname: "Smith"}))
	require.NoError(t, err)
	assert.NotNil(t, smith.About, "nil groups come back as empty objects")
}

func TestStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get("missing")
	assert.True(t, errors.Is(err, ErrPersonNotFound))
}

func TestStore_LoadReplaces(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Load(testResult(), IDStable)
	require.NoError(t, err)

	updated := testResult()
	updated.Persons[0].General = "Arrested."
	_, err = store.Load(updated, IDStable)
	require.NoError(t, err)

	count, err := store.Count(Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	docs, err := store.List(Filter{Q: "arrested"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Doe", docs[0].Lastname)
}

func TestStore_LoadPositional(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Load(testResult(), IDPositional)
	require.NoError(t, err)

	doc, err := store.Get("UK_MWL-2")
	require.NoError(t, err)
	assert.Equal(t, "Smith", doc.Lastname)
}

func TestStore_List(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Load(testResult(), IDStable)
	require.NoError(t, err)

	other := persons.NewResult("FR_MWL", "France", "https://example.fr/")
	other.Add(persons.Person{Firstname: "Jean", Lastname: "Dupont", General: "Recherché."})
	_, err = store.Load(other, IDStable)
	require.NoError(t, err)

	all, err := store.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "FR_MWL", all[0].SourceCode, "ordered by source then position")
	assert.Equal(t, "Doe", all[1].Lastname)
	assert.Equal(t, "Smith", all[2].Lastname)

	uk, err := store.List(Filter{SourceCode: "UK_MWL"})
	require.NoError(t, err)
	assert.Len(t, uk, 2)

	robbery, err := store.List(Filter{Q: "ROBBERY"})
	require.NoError(t, err)
	require.Len(t, robbery, 1)
	assert.Equal(t, "Smith", robbery[0].Lastname)

	page, err := store.List(Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Doe", page[0].Lastname)

	tail, err := store.List(Filter{Offset: 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "Smith", tail[0].Lastname)

	none, err := store.List(Filter{Q: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_Runs(t *testing.T) {
	store := setupTestStore(t)

	started := time.Now().Add(-time.Minute)
	report := &crawl.Report{
		Result:     testResult(),
		Links:      []string{"a", "b", "c"},
		Failures:   []crawl.PageFailure{{URL: "c", Message: "HTTP error"}},
		StartedAt:  started,
		FinishedAt: started.Add(10 * time.Second),
	}

	require.NoError(t, store.RecordRun(RunFromReport("UK_MWL", report, nil)))
	require.NoError(t, store.RecordRun(RunFromReport("XX", nil, errors.New("source not found"))))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	var ok Run
	for _, r := range runs {
		if r.SourceCode == "UK_MWL" {
			ok = r
		}
	}
	assert.Equal(t, 3, ok.Links)
	assert.Equal(t, 2, ok.Persons)
	require.Len(t, ok.Failures, 1)
	assert.Equal(t, "c", ok.Failures[0].URL)
	assert.Equal(t, "HTTP error", ok.Failures[0].Message)
	assert.Empty(t, ok.Error)
	assert.WithinDuration(t, started, ok.StartedAt, time.Millisecond)
}

func TestRunFromReport_Error(t *testing.T) {
	run := RunFromReport("XX", nil, errors.New("boom"))

	assert.Equal(t, "XX", run.SourceCode)
	assert.Equal(t, "boom", run.Error)
	assert.NotNil(t, run.Failures)
	assert.Zero(t, run.Persons)
}

func TestStore_CountFilter(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Load(testResult(), IDStable)
	require.NoError(t, err)

	n, err := store.Count(Filter{SourceCode: "UK_MWL", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "limit and offset do not change the count")

	n, err = store.Count(Filter{Q: "robbery"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Count(Filter{SourceCode: "FR_MWL"})
	require.NoError(t, err)
	assert.Zero(t, n)
}
