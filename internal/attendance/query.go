package attendance

import (
	"context"
	"sort"
	"time"
)

// Query lists check-ins scoped to the classes of one teacher.
type Query struct {
	classes ClassDirectory
	store   Lister
	loc     *time.Location
}

// NewQuery builds a query; loc defines calendar days for date filters.
func NewQuery(classes ClassDirectory, store Lister, loc *time.Location) *Query {
	if loc == nil {
		loc = time.UTC
	}
	return &Query{classes: classes, store: store, loc: loc}
}

// ClassBelongsToTeacher is the single ownership predicate for list and export paths.
func (q *Query) ClassBelongsToTeacher(ctx context.Context, classID, teacherID string) (bool, error) {
	ok, err := q.classes.BelongsToTeacher(ctx, classID, teacherID)
	if err != nil {
		return false, &StorageError{Op: "check class ownership", Err: err}
	}
	return ok, nil
}

// ListForTeacher returns the teacher's records, newest first. It fails with
// ErrNoClasses when the teacher owns no class and with a ForbiddenError when
// the class filter names a class of somebody else.
func (q *Query) ListForTeacher(ctx context.Context, teacherID string, f Filter) ([]Listing, error) {
	n, err := q.classes.CountByTeacher(ctx, teacherID)
	if err != nil {
		return nil, &StorageError{Op: "count classes", Err: err}
	}
	if n == 0 {
		return nil, ErrNoClasses
	}

	params := ListParams{TeacherID: teacherID}
	if f.ClassID != "" {
		owned, err := q.ClassBelongsToTeacher(ctx, f.ClassID, teacherID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, &ForbiddenError{ClassID: f.ClassID, TeacherID: teacherID}
		}
		params.ClassID = f.ClassID
	}
	if !f.Day.IsZero() {
		y, m, d := f.Day.In(q.loc).Date()
		params.From = time.Date(y, m, d, 0, 0, 0, 0, q.loc)
		params.To = params.From.AddDate(0, 0, 1)
	}

	rows, err := q.store.ListForTeacher(ctx, params)
	if err != nil {
		return nil, &StorageError{Op: "list attendance", Err: err}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SubmittedAt.After(rows[j].SubmittedAt)
	})
	return rows, nil
}

// ParseDay parses a YYYY-MM-DD filter in the query's location.
func (q *Query) ParseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, q.loc)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "fecha", Reason: "expected YYYY-MM-DD"}
	}
	return d, nil
}
