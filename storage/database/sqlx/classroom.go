package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/classroom"
)

const (
	studentColumns = `id, external_id, first_name, last_name, nickname, gender, initials, x, y, width, height,
		fill_color, outline_color, text_color, group_id, created_at, updated_at`
	groupColumns     = "id, name, color, created_at, updated_at"
	furnitureColumns = `id, external_id, name, type, x, y, width, height, fill_color, outline_color, created_at, updated_at`
)

var studentOrderings = map[string]string{
	"first_name": "first_name",
	"last_name":  "last_name",
	"nickname":   "nickname",
	"created_at": "created_at",
	"x":          "x",
	"y":          "y",
}

type (
	studentRow struct {
		ID           string       `db:"id"`
		ExternalID   null.String  `db:"external_id"`
		FirstName    string       `db:"first_name"`
		LastName     string       `db:"last_name"`
		Nickname     string       `db:"nickname"`
		Gender       string       `db:"gender"`
		Initials     string       `db:"initials"`
		X            float64      `db:"x"`
		Y            float64      `db:"y"`
		Width        null.Float64 `db:"width"`
		Height       null.Float64 `db:"height"`
		FillColor    null.String  `db:"fill_color"`
		OutlineColor null.String  `db:"outline_color"`
		TextColor    null.String  `db:"text_color"`
		GroupID      null.String  `db:"group_id"`
		CreatedAt    int64        `db:"created_at"`
		UpdatedAt    int64        `db:"updated_at"`
	}

	groupRow struct {
		ID        string `db:"id"`
		Name      string `db:"name"`
		Color     string `db:"color"`
		CreatedAt int64  `db:"created_at"`
		UpdatedAt int64  `db:"updated_at"`
	}

	furnitureRow struct {
		ID           string      `db:"id"`
		ExternalID   null.String `db:"external_id"`
		Name         string      `db:"name"`
		Type         string      `db:"type"`
		X            float64     `db:"x"`
		Y            float64     `db:"y"`
		Width        float64     `db:"width"`
		Height       float64     `db:"height"`
		FillColor    null.String `db:"fill_color"`
		OutlineColor null.String `db:"outline_color"`
		CreatedAt    int64       `db:"created_at"`
		UpdatedAt    int64       `db:"updated_at"`
	}
)

func newStudentRow(s classroom.Student) studentRow {
	return studentRow{
		ID:           s.ID,
		ExternalID:   nullString(s.ExternalID),
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Nickname:     s.Nickname,
		Gender:       s.Gender,
		Initials:     s.Initials,
		X:            s.X,
		Y:            s.Y,
		Width:        null.Float64FromPtr(s.Width),
		Height:       null.Float64FromPtr(s.Height),
		FillColor:    nullString(s.FillColor),
		OutlineColor: nullString(s.OutlineColor),
		TextColor:    nullString(s.TextColor),
		GroupID:      nullString(s.GroupID),
		CreatedAt:    toMillis(s.CreatedAt),
		UpdatedAt:    toMillis(s.UpdatedAt),
	}
}

func (r studentRow) student() classroom.Student {
	return classroom.Student{
		ID:           r.ID,
		ExternalID:   r.ExternalID.String,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Nickname:     r.Nickname,
		Gender:       r.Gender,
		Initials:     r.Initials,
		X:            r.X,
		Y:            r.Y,
		Width:        r.Width.Ptr(),
		Height:       r.Height.Ptr(),
		FillColor:    r.FillColor.String,
		OutlineColor: r.OutlineColor.String,
		TextColor:    r.TextColor.String,
		GroupID:      r.GroupID.String,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

func (r groupRow) group() classroom.StudentGroup {
	return classroom.StudentGroup{
		ID:        r.ID,
		Name:      r.Name,
		Color:     r.Color,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}
}

func newFurnitureRow(f classroom.Furniture) furnitureRow {
	return furnitureRow{
		ID:           f.ID,
		ExternalID:   nullString(f.ExternalID),
		Name:         f.Name,
		Type:         f.Type,
		X:            f.X,
		Y:            f.Y,
		Width:        f.Width,
		Height:       f.Height,
		FillColor:    nullString(f.FillColor),
		OutlineColor: nullString(f.OutlineColor),
		CreatedAt:    toMillis(f.CreatedAt),
		UpdatedAt:    toMillis(f.UpdatedAt),
	}
}

func (r furnitureRow) furniture() classroom.Furniture {
	return classroom.Furniture{
		ID:           r.ID,
		ExternalID:   r.ExternalID.String,
		Name:         r.Name,
		Type:         r.Type,
		X:            r.X,
		Y:            r.Y,
		Width:        r.Width,
		Height:       r.Height,
		FillColor:    r.FillColor.String,
		OutlineColor: r.OutlineColor.String,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

type classroomRepository struct {
	repository
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(exec core.DBExecutor) *classroomRepository {
	return &classroomRepository{repository{exec: exec}}
}

func (repo classroomRepository) trapStudentErr(err error, msg string) error {
	if isUniqueViolation(err, "external_id") {
		return core.NewValidationError(classroom.ErrExternalIDExists,
			core.FieldError{Field: "external_id", Error: classroom.ErrExternalIDExists.Error()})
	}
	return errors.Wrap(err, msg)
}

func (repo classroomRepository) CreateStudent(ctx context.Context, s classroom.Student, exec ...core.DBExecutor) (classroom.Student, error) {
	r := newStudentRow(s)
	_, err := repo.exe(ctx, repo.getExec(exec),
		"INSERT INTO students ("+studentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.ExternalID, r.FirstName, r.LastName, r.Nickname, r.Gender, r.Initials, r.X, r.Y, r.Width, r.Height,
		r.FillColor, r.OutlineColor, r.TextColor, r.GroupID, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return classroom.Student{}, repo.trapStudentErr(err, "inserting student")
	}
	return r.student(), nil
}

func (repo classroomRepository) QueryStudents(ctx context.Context, filter *classroom.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]classroom.Student, error) {
	w := new(where)
	if filter != nil {
		w.search(filter.Search, "first_name", "last_name", "nickname")
		if filter.GroupIDs != nil {
			w.in("group_id", filter.GroupIDs)
		}
		if filter.IDs != nil {
			w.in("id", filter.IDs)
		}
	}

	var rows []studentRow
	q := "SELECT " + studentColumns + " FROM students" + w.String() + core.OrderBy(ordering, studentOrderings, "created_at ASC, id ASC")
	if err := repo.sel(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]classroom.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo classroomRepository) getStudent(ctx context.Context, exec []core.DBExecutor, cond string, arg interface{}) (classroom.Student, error) {
	var r studentRow
	if err := repo.get(ctx, repo.getExec(exec), &r, "SELECT "+studentColumns+" FROM students WHERE "+cond, arg); err != nil {
		return classroom.Student{}, trapNoRowsErr(err, classroom.ErrStudentNotFound, "finding student")
	}
	return r.student(), nil
}

func (repo classroomRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (classroom.Student, error) {
	return repo.getStudent(ctx, exec, "id = ?", id)
}

func (repo classroomRepository) GetStudentByExternalID(ctx context.Context, externalID string, exec ...core.DBExecutor) (classroom.Student, error) {
	if externalID == "" {
		return classroom.Student{}, classroom.ErrStudentNotFound
	}
	return repo.getStudent(ctx, exec, "external_id = ?", externalID)
}

func (repo classroomRepository) UpdateStudent(ctx context.Context, s classroom.Student, exec ...core.DBExecutor) (classroom.Student, error) {
	r := newStudentRow(s)
	n, err := repo.exe(ctx, repo.getExec(exec),
		`UPDATE students SET external_id = ?, first_name = ?, last_name = ?, nickname = ?, gender = ?, initials = ?,
			x = ?, y = ?, width = ?, height = ?, fill_color = ?, outline_color = ?, text_color = ?, group_id = ?,
			updated_at = ? WHERE id = ?`,
		r.ExternalID, r.FirstName, r.LastName, r.Nickname, r.Gender, r.Initials, r.X, r.Y, r.Width, r.Height,
		r.FillColor, r.OutlineColor, r.TextColor, r.GroupID, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return classroom.Student{}, repo.trapStudentErr(err, "updating student")
	}
	if n == 0 {
		return classroom.Student{}, classroom.ErrStudentNotFound
	}
	return r.student(), nil
}

func (repo classroomRepository) DeleteStudents(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if _, err := repo.deleteIn(ctx, repo.getExec(exec), "students", ids); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}

func (repo classroomRepository) trapGroupErr(err error, msg string) error {
	if isUniqueViolation(err, "name") {
		return core.NewValidationError(classroom.ErrGroupNameExists,
			core.FieldError{Field: "name", Error: classroom.ErrGroupNameExists.Error()})
	}
	return errors.Wrap(err, msg)
}

func (repo classroomRepository) CreateGroup(ctx context.Context, g classroom.StudentGroup, exec ...core.DBExecutor) (classroom.StudentGroup, error) {
	_, err := repo.exe(ctx, repo.getExec(exec),
		"INSERT INTO student_groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?)",
		g.ID, g.Name, g.Color, toMillis(g.CreatedAt), toMillis(g.UpdatedAt),
	)
	if err != nil {
		return classroom.StudentGroup{}, repo.trapGroupErr(err, "inserting group")
	}
	return g, nil
}

func (repo classroomRepository) QueryGroups(ctx context.Context, exec ...core.DBExecutor) ([]classroom.StudentGroup, error) {
	var rows []groupRow
	if err := repo.sel(ctx, repo.getExec(exec), &rows, "SELECT "+groupColumns+" FROM student_groups ORDER BY name ASC"); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groups := make([]classroom.StudentGroup, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, r.group())
	}
	return groups, nil
}

func (repo classroomRepository) getGroup(ctx context.Context, exec []core.DBExecutor, cond string, arg interface{}) (classroom.StudentGroup, error) {
	var r groupRow
	if err := repo.get(ctx, repo.getExec(exec), &r, "SELECT "+groupColumns+" FROM student_groups WHERE "+cond, arg); err != nil {
		return classroom.StudentGroup{}, trapNoRowsErr(err, classroom.ErrGroupNotFound, "finding group")
	}
	return r.group(), nil
}

func (repo classroomRepository) GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (classroom.StudentGroup, error) {
	return repo.getGroup(ctx, exec, "id = ?", id)
}

func (repo classroomRepository) GetGroupByName(ctx context.Context, name string, exec ...core.DBExecutor) (classroom.StudentGroup, error) {
	return repo.getGroup(ctx, exec, "name = ?", name)
}

func (repo classroomRepository) UpdateGroup(ctx context.Context, g classroom.StudentGroup, exec ...core.DBExecutor) (classroom.StudentGroup, error) {
	n, err := repo.exe(ctx, repo.getExec(exec),
		"UPDATE student_groups SET name = ?, color = ?, updated_at = ? WHERE id = ?",
		g.Name, g.Color, toMillis(g.UpdatedAt), g.ID,
	)
	if err != nil {
		return classroom.StudentGroup{}, repo.trapGroupErr(err, "updating group")
	}
	if n == 0 {
		return classroom.StudentGroup{}, classroom.ErrGroupNotFound
	}
	return g, nil
}

func (repo classroomRepository) DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := repo.deleteIn(ctx, repo.getExec(exec), "student_groups", []string{id})
	if err != nil {
		return errors.Wrap(err, "deleting group")
	}
	if n == 0 {
		return classroom.ErrGroupNotFound
	}
	return nil
}

func (repo classroomRepository) CreateFurniture(ctx context.Context, f classroom.Furniture, exec ...core.DBExecutor) (classroom.Furniture, error) {
	r := newFurnitureRow(f)
	_, err := repo.exe(ctx, repo.getExec(exec),
		"INSERT INTO furniture ("+furnitureColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.ExternalID, r.Name, r.Type, r.X, r.Y, r.Width, r.Height, r.FillColor, r.OutlineColor,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return classroom.Furniture{}, errors.Wrap(err, "inserting furniture")
	}
	return r.furniture(), nil
}

func (repo classroomRepository) QueryFurniture(ctx context.Context, exec ...core.DBExecutor) ([]classroom.Furniture, error) {
	var rows []furnitureRow
	if err := repo.sel(ctx, repo.getExec(exec), &rows, "SELECT "+furnitureColumns+" FROM furniture ORDER BY created_at ASC, id ASC"); err != nil {
		return nil, errors.Wrap(err, "querying furniture")
	}
	items := make([]classroom.Furniture, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.furniture())
	}
	return items, nil
}

func (repo classroomRepository) getFurniture(ctx context.Context, exec []core.DBExecutor, cond string, arg interface{}) (classroom.Furniture, error) {
	var r furnitureRow
	if err := repo.get(ctx, repo.getExec(exec), &r, "SELECT "+furnitureColumns+" FROM furniture WHERE "+cond, arg); err != nil {
		return classroom.Furniture{}, trapNoRowsErr(err, classroom.ErrFurnitureNotFound, "finding furniture")
	}
	return r.furniture(), nil
}

func (repo classroomRepository) GetFurniture(ctx context.Context, id string, exec ...core.DBExecutor) (classroom.Furniture, error) {
	return repo.getFurniture(ctx, exec, "id = ?", id)
}

func (repo classroomRepository) GetFurnitureByExternalID(ctx context.Context, externalID string, exec ...core.DBExecutor) (classroom.Furniture, error) {
	if externalID == "" {
		return classroom.Furniture{}, classroom.ErrFurnitureNotFound
	}
	return repo.getFurniture(ctx, exec, "external_id = ?", externalID)
}

func (repo classroomRepository) UpdateFurniture(ctx context.Context, f classroom.Furniture, exec ...core.DBExecutor) (classroom.Furniture, error) {
	r := newFurnitureRow(f)
	n, err := repo.exe(ctx, repo.getExec(exec),
		`UPDATE furniture SET external_id = ?, name = ?, type = ?, x = ?, y = ?, width = ?, height = ?,
			fill_color = ?, outline_color = ?, updated_at = ? WHERE id = ?`,
		r.ExternalID, r.Name, r.Type, r.X, r.Y, r.Width, r.Height, r.FillColor, r.OutlineColor, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return classroom.Furniture{}, errors.Wrap(err, "updating furniture")
	}
	if n == 0 {
		return classroom.Furniture{}, classroom.ErrFurnitureNotFound
	}
	return r.furniture(), nil
}

func (repo classroomRepository) DeleteFurniture(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if _, err := repo.deleteIn(ctx, repo.getExec(exec), "furniture", ids); err != nil {
		return errors.Wrap(err, "deleting furniture")
	}
	return nil
}
