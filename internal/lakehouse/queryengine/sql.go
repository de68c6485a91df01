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
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xwb1989/sqlparser"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
)

// plannedScan is the result of planning a SELECT: which view to read, the
// pushed-down time window, and an optional process_id equality filter that
// routes the scan to the JIT path instead of the catalog.
type plannedScan struct {
	ViewSet   string
	Window    catalog.TimeRange
	ProcessID uuid.UUID
	HasProc   bool
}

// planSelect parses sql and extracts the single table name plus any
// time/process_id predicates in its WHERE clause. Only the narrow subset of
// SELECT this system's views need to support is handled: a single table
// reference and a top-level conjunction of equality/comparison predicates
// on time, begin_time, time_bucket, begin_time_ns and process_id
// columns — there is no general
// expression evaluator here, since the only thing a plan needs to drive
// is pushing time-range filters down to the partition catalog, not a
// general query optimizer.
func planSelect(sql string) (plannedScan, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return plannedScan{}, errors.Wrap(err, "parsing query")
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return plannedScan{}, errors.Wrapf(errs.ErrUnknownColumn, "only SELECT statements are supported")
	}
	if len(sel.From) != 1 {
		return plannedScan{}, errors.Wrapf(errs.ErrUnknownColumn, "exactly one table reference is required")
	}
	tableName, err := tableNameOf(sel.From[0])
	if err != nil {
		return plannedScan{}, err
	}

	plan := plannedScan{ViewSet: tableName}
	if sel.Where != nil {
		if err := applyPredicate(sel.Where.Expr, &plan); err != nil {
			return plannedScan{}, err
		}
	}
	return plan, nil
}

func tableNameOf(expr sqlparser.TableExpr) (string, error) {
	aliased, ok := expr.(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", errors.Wrapf(errs.ErrUnknownColumn, "unsupported table expression %T", expr)
	}
	name, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", errors.Wrapf(errs.ErrUnknownColumn, "unsupported table expression %T", aliased.Expr)
	}
	return name.Name.String(), nil
}

// applyPredicate walks a conjunction of comparisons, filling in plan's time
// window and process_id filter. Any predicate shape beyond "column op
// literal" joined by AND is rejected rather than silently ignored, so a
// caller never gets a partial, wrongly-pruned result.
func applyPredicate(expr sqlparser.Expr, plan *plannedScan) error {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		if err := applyPredicate(e.Left, plan); err != nil {
			return err
		}
		return applyPredicate(e.Right, plan)

	case *sqlparser.ComparisonExpr:
		return applyComparison(e, plan)

	default:
		return errors.Wrapf(errs.ErrUnknownColumn, "unsupported predicate %T", expr)
	}
}

func applyComparison(e *sqlparser.ComparisonExpr, plan *plannedScan) error {
	col, ok := e.Left.(*sqlparser.ColName)
	if !ok {
		return errors.Wrapf(errs.ErrUnknownColumn, "left side of comparison must be a column")
	}
	val, ok := e.Right.(*sqlparser.SQLVal)
	if !ok {
		return errors.Wrapf(errs.ErrUnknownColumn, "right side of comparison must be a literal")
	}

	switch col.Name.String() {
	case "time", "begin_time", "time_bucket", "begin_time_ns":
		t, err := parseTimeLiteral(val)
		if err != nil {
			return err
		}
		switch e.Operator {
		case sqlparser.GreaterEqualStr, sqlparser.GreaterThanStr:
			plan.Window.Begin = t
		case sqlparser.LessThanStr, sqlparser.LessEqualStr:
			plan.Window.End = t
		default:
			return errors.Wrapf(errs.ErrUnknownColumn, "unsupported time operator %q", e.Operator)
		}
		return nil

	case "process_id":
		if e.Operator != sqlparser.EqualStr {
			return errors.Wrapf(errs.ErrUnknownColumn, "process_id only supports equality")
		}
		id, err := uuid.Parse(string(val.Val))
		if err != nil {
			return errors.Wrap(err, "parsing process_id literal")
		}
		plan.ProcessID = id
		plan.HasProc = true
		return nil

	default:
		return errors.Wrapf(errs.ErrUnknownColumn, "unsupported predicate column %q", col.Name.String())
	}
}

func parseTimeLiteral(val *sqlparser.SQLVal) (time.Time, error) {
	switch val.Type {
	case sqlparser.StrVal:
		t, err := time.Parse(time.RFC3339Nano, string(val.Val))
		if err != nil {
			return time.Time{}, errors.Wrap(err, "parsing time literal")
		}
		return t, nil
	case sqlparser.IntVal:
		nanos, err := parseInt64(string(val.Val))
		if err != nil {
			return time.Time{}, errors.Wrap(err, "parsing integer time literal")
		}
		return time.Unix(0, nanos), nil
	default:
		return time.Time{}, errors.Wrapf(errs.ErrUnknownColumn, "unsupported time literal type %v", val.Type)
	}
}

func parseInt64(s string) (int64, error) {
	var n int64
	var neg bool
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0, errors.Wrapf(errs.ErrUnknownColumn, "not an integer literal: %q", s)
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

// Query implements the query engine's SELECT entry point: plan, then
// dispatch to the JIT path when a process_id filter names a process-scoped
// view, otherwise fall back to the catalog-backed materialized scan.
func (e *Engine) Query(ctx context.Context, sql string) (interface{}, error) {
	plan, err := planSelect(sql)
	if err != nil {
		return nil, err
	}

	view, ok := e.registry.Get(plan.ViewSet)
	if !ok {
		return nil, errors.Wrapf(errs.ErrPartitionNotFound, "unknown view set %q", plan.ViewSet)
	}

	if plan.HasProc && view.PartitionKey == views.PartitionKeyByProcess {
		return e.ScanProcess(ctx, plan.ViewSet, plan.ProcessID, plan.Window)
	}
	return e.Scan(ctx, plan.ViewSet, plan.Window)
}
