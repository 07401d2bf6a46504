package posts

import (
	"fmt"
	"strings"
)

const postColumns = "id, title, content, brand, platform, due_date, payment, status, created_at, updated_at"

type queryArgs struct {
	args []any
}

func (q *queryArgs) add(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func filterConditions(f Filter, q *queryArgs) []string {
	var conds []string
	if f.Brand != "" {
		conds = append(conds, "brand = "+q.add(f.Brand))
	}
	if f.Platform != nil {
		conds = append(conds, "platform = "+q.add(string(*f.Platform)))
	}
	if f.Status != nil {
		conds = append(conds, "status = "+q.add(string(*f.Status)))
	}
	if f.DueDateFrom != nil {
		conds = append(conds, "due_date >= "+q.add(*f.DueDateFrom))
	}
	if f.DueDateTo != nil {
		conds = append(conds, "due_date <= "+q.add(*f.DueDateTo))
	}
	return conds
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// sortExpr compares text columns bytewise so the keyset order matches cursor comparison.
func sortExpr(f SortField) string {
	col := sortColumns[f]
	if f.isTime() || f == SortPayment {
		return col
	}
	return col + ` COLLATE "C"`
}

func sortDirection(o SortOrder) (op, dir string) {
	if o == Asc {
		return ">", "ASC"
	}
	return "<", "DESC"
}

// listConditions returns the filter conditions plus the keyset predicate
// when p.After is set.
func listConditions(p ListParams, q *queryArgs) ([]string, error) {
	if _, ok := sortColumns[p.SortBy]; !ok {
		return nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalidInput, p.SortBy)
	}
	conds := filterConditions(p.Filter, q)
	if p.After == nil {
		return conds, nil
	}
	key, err := parseKey(p.SortBy, p.After.Value)
	if err != nil {
		return nil, err
	}
	op, _ := sortDirection(p.Order)
	expr := sortExpr(p.SortBy)
	v := q.add(key.value(p.SortBy))
	id := q.add(p.After.ID)
	return append(conds, fmt.Sprintf("(%s %s %s OR (%s = %s AND id %s %s))", expr, op, v, expr, v, op, id)), nil
}

func buildListQuery(p ListParams) (string, []any, error) {
	q := &queryArgs{}
	conds, err := listConditions(p, q)
	if err != nil {
		return "", nil, err
	}
	_, dir := sortDirection(p.Order)
	expr := sortExpr(p.SortBy)
	query := "SELECT " + postColumns + " FROM posts" + whereClause(conds) +
		fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT %s", expr, dir, dir, q.add(p.Limit))
	return query, q.args, nil
}

func buildOffsetQuery(f Filter, limit, offset int) (string, []any) {
	q := &queryArgs{}
	conds := filterConditions(f, q)
	query := "SELECT " + postColumns + " FROM posts" + whereClause(conds) +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %s OFFSET %s", q.add(limit), q.add(offset))
	return query, q.args
}

// buildCountQuery counts the rows a listing with p can still reach: the
// filtered set, narrowed by the keyset predicate when p.After is set.
func buildCountQuery(p ListParams) (string, []any, error) {
	q := &queryArgs{}
	if p.After == nil {
		return "SELECT COUNT(*) FROM posts" + whereClause(filterConditions(p.Filter, q)), q.args, nil
	}
	conds, err := listConditions(p, q)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM posts" + whereClause(conds), q.args, nil
}
