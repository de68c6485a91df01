package queryengine_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/jit"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
	"github.com/micromegas-db/micromegas/internal/lakehouse/queryengine"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
)

func TestHandlerListViewSetsReturnsJSON(t *testing.T) {
	registry := views.NewDefaultRegistry()
	store, err := objstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	src := &fakeBlockSource{}
	jitProvider := jit.New(src)

	engine := queryengine.New(registry, nil, store, jitProvider, src)
	handler := engine.Handler()

	req := httptest.NewRequest(http.MethodGet, "/query/v1/view_sets", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "log_entries")
}

func TestHandlerQueryRejectsInvalidSQL(t *testing.T) {
	registry := views.NewDefaultRegistry()
	store, err := objstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	src := &fakeBlockSource{}
	jitProvider := jit.New(src)

	engine := queryengine.New(registry, nil, store, jitProvider, src)
	handler := engine.Handler()

	req := httptest.NewRequest(http.MethodPost, "/query/v1/sql", strings.NewReader(`{"sql": "not valid sql !!"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
