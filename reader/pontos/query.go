package pontos

import (
	"net/url"
	"strconv"
	"time"
)

// query builds a PostgREST request for one table. Filters are added as
// column=operator.value pairs.
type query struct {
	table  string
	params url.Values
}

func newQuery(table string) *query {
	return &query{table: table, params: url.Values{}}
}

func (q *query) filter(column, op, value string) *query {
	q.params.Add(column, op+"."+value)
	return q
}

func (q *query) Eq(column, value string) *query {
	return q.filter(column, "eq", value)
}

func (q *query) Gte(column string, t time.Time) *query {
	return q.filter(column, "gte", formatTimestamp(t))
}

func (q *query) Lt(column string, t time.Time) *query {
	return q.filter(column, "lt", formatTimestamp(t))
}

func (q *query) Select(columns string) *query {
	q.params.Set("select", columns)
	return q
}

func (q *query) Order(order string) *query {
	q.params.Set("order", order)
	return q
}

// Page restricts the result to limit rows starting at offset. A limit of
// zero leaves the query unpaged.
func (q *query) Page(limit, offset int) *query {
	if limit <= 0 {
		q.params.Del("limit")
		q.params.Del("offset")
		return q
	}
	q.params.Set("limit", strconv.Itoa(limit))
	q.params.Set("offset", strconv.Itoa(offset))
	return q
}

// URL resolves the query against the API base URL.
func (q *query) URL(base *url.URL) string {
	u := base.JoinPath(q.table)
	u.RawQuery = q.params.Encode()
	return u.String()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
