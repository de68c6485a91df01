// Copyright 2026 The Micromegas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package queryengine

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// sqlRequest is the body POSTed to /query/v1/sql.
type sqlRequest struct {
	SQL string `json:"sql"`
}

// Handler returns the mux.Router serving queryd's SQL-over-HTTP endpoint,
// mirroring ingestion.Service.Handler's router-per-service shape.
func (e *Engine) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/query/v1/sql", e.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/query/v1/view_sets", e.handleListViewSets).Methods(http.MethodGet)
	return r
}

func (e *Engine) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "decoding request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := e.Query(r.Context(), req.SQL)
	if err != nil {
		log.WithError(err).WithField("sql", req.SQL).Warn("query failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		log.WithError(err).Warn("failed encoding query response")
	}
}

func (e *Engine) handleListViewSets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(e.ListViewSets()); err != nil {
		log.WithError(err).Warn("failed encoding view set list")
	}
}
