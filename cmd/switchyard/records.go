package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vango-dev/switchyard/pkg/dispatch"
	"github.com/vango-dev/switchyard/pkg/render"
	"github.com/vango-dev/switchyard/pkg/repository"
)

// record is one row of the configured records table.
type record struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

var recordColumns = []string{"id", "name", "created_at"}

type recordsQuery struct {
	Page int    `param:"page"`
	Size int    `param:"size"`
	Name string `param:"name"`
}

type recordsPage struct {
	Items   []record `json:"items"`
	Page    int      `json:"page"`
	Size    int      `json:"size"`
	Total   int64    `json:"total"`
	Pages   int      `json:"pages"`
	HasNext bool     `json:"hasNext"`
}

// listRecords serves GET /records?page=&size=&name= as JSON, ordered by id.
func listRecords(repo repository.Repository[record]) dispatch.Action {
	return func(c *dispatch.Context) (any, error) {
		if repo == nil {
			return nil, dispatch.Halt(http.StatusServiceUnavailable, "records unavailable")
		}

		var in recordsQuery
		if err := c.Bind(&in); err != nil {
			return nil, err
		}
		q := repository.NewQuery().Order("id", false)
		if in.Name != "" {
			q = q.And(repository.Eq("name", in.Name))
		}

		res, err := repository.FindPage(c.StdContext(), repo, q, in.Page, in.Size)
		if err != nil {
			return nil, err
		}
		items := res.Items
		if items == nil {
			items = []record{}
		}
		body, err := json.Marshal(recordsPage{
			Items:   items,
			Page:    res.Page.Number,
			Size:    res.Page.Size,
			Total:   res.Page.Total,
			Pages:   res.Page.Pages(),
			HasNext: res.Page.HasNext(),
		})
		if err != nil {
			return nil, err
		}
		return render.Ok(body).WithHeader("Content-Type", "application/json"), nil
	}
}

type recordsStats struct {
	Count   int64   `json:"count"`
	FirstID float64 `json:"firstId"`
	LastID  float64 `json:"lastId"`
}

// recordStats serves GET /records/stats: the row count and the id range.
func recordStats(repo repository.Repository[record]) dispatch.Action {
	return func(c *dispatch.Context) (any, error) {
		if repo == nil {
			return nil, dispatch.Halt(http.StatusServiceUnavailable, "records unavailable")
		}

		ctx, q := c.StdContext(), repository.NewQuery()
		var (
			st  recordsStats
			err error
		)
		if st.Count, err = repo.Count(ctx, q); err != nil {
			return nil, err
		}
		if st.FirstID, err = repo.Aggregate(ctx, repository.Min, "id", q); err != nil {
			return nil, err
		}
		if st.LastID, err = repo.Aggregate(ctx, repository.Max, "id", q); err != nil {
			return nil, err
		}

		body, err := json.Marshal(st)
		if err != nil {
			return nil, err
		}
		return render.Ok(body).WithHeader("Content-Type", "application/json"), nil
	}
}
