package classroom

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
)

var (
	// errors
	ErrStudentNotFound   = core.NewNotFoundError("student not found")
	ErrGroupNotFound     = core.NewNotFoundError("student group not found")
	ErrFurnitureNotFound = core.NewNotFoundError("furniture not found")
	ErrGroupNameExists   = errors.New("a group with this name already exists")
	ErrExternalIDExists  = errors.New("a student with this external id already exists")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on first name, last name or nickname.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		GetStudentByExternalID(ctx context.Context, externalID string, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudents(ctx context.Context, ids []string, exec ...core.DBExecutor) error

		CreateGroup(ctx context.Context, g StudentGroup, exec ...core.DBExecutor) (StudentGroup, error)
		QueryGroups(ctx context.Context, exec ...core.DBExecutor) ([]StudentGroup, error)
		GetGroup(ctx context.Context, id string, exec ...core.DBExecutor) (StudentGroup, error)
		GetGroupByName(ctx context.Context, name string, exec ...core.DBExecutor) (StudentGroup, error)
		UpdateGroup(ctx context.Context, g StudentGroup, exec ...core.DBExecutor) (StudentGroup, error)
		DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateFurniture(ctx context.Context, f Furniture, exec ...core.DBExecutor) (Furniture, error)
		QueryFurniture(ctx context.Context, exec ...core.DBExecutor) ([]Furniture, error)
		GetFurniture(ctx context.Context, id string, exec ...core.DBExecutor) (Furniture, error)
		GetFurnitureByExternalID(ctx context.Context, externalID string, exec ...core.DBExecutor) (Furniture, error)
		UpdateFurniture(ctx context.Context, f Furniture, exec ...core.DBExecutor) (Furniture, error)
		DeleteFurniture(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	Service interface {
		CheckExternalIDUniqueness(ctx context.Context, externalID string, exclude ...Student) error
		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		GetStudentByExternalID(ctx context.Context, externalID string) (Student, error)
		UpdateStudent(ctx context.Context, s Student, us UpdateStudent) (Student, error)
		MoveStudent(ctx context.Context, s Student, pos Position) (Student, error)
		DeleteStudents(ctx context.Context, ids ...string) error
		NextFreePosition(ctx context.Context, excludeID string, width, height float64) (Position, error)

		CheckGroupNameUniqueness(ctx context.Context, name string, exclude ...StudentGroup) error
		CreateGroup(ctx context.Context, ng NewGroup) (StudentGroup, error)
		QueryGroups(ctx context.Context) ([]StudentGroup, error)
		GetGroup(ctx context.Context, id string) (StudentGroup, error)
		GetGroupByName(ctx context.Context, name string) (StudentGroup, error)
		UpdateGroup(ctx context.Context, id string, ug UpdateGroup) (StudentGroup, error)
		DeleteGroup(ctx context.Context, id string) error

		CreateFurniture(ctx context.Context, nf NewFurniture) (Furniture, error)
		QueryFurniture(ctx context.Context) ([]Furniture, error)
		GetFurniture(ctx context.Context, id string) (Furniture, error)
		GetFurnitureByExternalID(ctx context.Context, externalID string) (Furniture, error)
		UpdateFurniture(ctx context.Context, f Furniture, uf UpdateFurniture) (Furniture, error)
		MoveFurniture(ctx context.Context, f Furniture, pos Position) (Furniture, error)
		DeleteFurniture(ctx context.Context, ids ...string) error

		Layout(ctx context.Context) (Layout, error)
	}

	service struct {
		repo   Repository
		canvas core.CanvasConfig
	}
)

func NewService(repo Repository, canvas core.CanvasConfig) Service {
	return &service{repo: repo, canvas: canvas}
}

func (svc *service) CheckExternalIDUniqueness(ctx context.Context, externalID string, exclude ...Student) error {
	if externalID == "" {
		return nil
	}
	s, err := svc.repo.GetStudentByExternalID(ctx, externalID)
	switch {
	case err == nil:
		for _, ex := range exclude {
			if ex.ID == s.ID {
				return nil
			}
		}
		return core.NewValidationError(ErrExternalIDExists, core.FieldError{Field: "external_id", Error: ErrExternalIDExists.Error()})
	case errors.Cause(err) == ErrStudentNotFound:
		return nil
	default:
		return errors.Wrap(err, "checking external id")
	}
}

func (svc *service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	now := core.Now()
	s := Student{
		ID:           uuid.NewString(),
		ExternalID:   ns.ExternalID,
		FirstName:    ns.FirstName,
		LastName:     ns.LastName,
		Nickname:     ns.Nickname,
		Gender:       ns.Gender,
		Initials:     ns.Initials,
		Width:        ns.Width,
		Height:       ns.Height,
		FillColor:    ns.FillColor,
		OutlineColor: ns.OutlineColor,
		TextColor:    ns.TextColor,
		GroupID:      ns.GroupID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.Initials == "" {
		s.Initials = Initials(s.FirstName, s.LastName)
	}

	if ns.X != nil && ns.Y != nil {
		s.X, s.Y = *ns.X, *ns.Y
	} else {
		w, h := s.IconSize()
		pos, err := svc.NextFreePosition(ctx, "", w, h)
		if err != nil {
			return Student{}, err
		}
		s.X, s.Y = pos.X, pos.Y
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *service) QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) GetStudentByExternalID(ctx context.Context, externalID string) (Student, error) {
	return svc.repo.GetStudentByExternalID(ctx, core.CleanString(externalID))
}

func (svc *service) UpdateStudent(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	us.apply(&s)
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *service) MoveStudent(ctx context.Context, s Student, pos Position) (Student, error) {
	s.X, s.Y = pos.X, pos.Y
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *service) DeleteStudents(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.DeleteStudents(ctx, ids)
}

// NextFreePosition places an icon of the given size next to the students already on the canvas.
func (svc *service) NextFreePosition(ctx context.Context, excludeID string, width, height float64) (Position, error) {
	students, err := svc.repo.QueryStudents(ctx, nil, nil)
	if err != nil {
		return Position{}, errors.Wrap(err, "querying students")
	}
	return NextFreePosition(students, excludeID, width, height, svc.canvas.Width, svc.canvas.Height), nil
}

func (svc *service) CheckGroupNameUniqueness(ctx context.Context, name string, exclude ...StudentGroup) error {
	g, err := svc.repo.GetGroupByName(ctx, name)
	switch {
	case err == nil:
		for _, ex := range exclude {
			if ex.ID == g.ID {
				return nil
			}
		}
		return core.NewValidationError(ErrGroupNameExists, core.FieldError{Field: "name", Error: ErrGroupNameExists.Error()})
	case errors.Cause(err) == ErrGroupNotFound:
		return nil
	default:
		return errors.Wrap(err, "checking group name")
	}
}

func (svc *service) CreateGroup(ctx context.Context, ng NewGroup) (StudentGroup, error) {
	now := core.Now()
	return svc.repo.CreateGroup(ctx, StudentGroup{
		ID:        uuid.NewString(),
		Name:      ng.Name,
		Color:     ng.Color,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) QueryGroups(ctx context.Context) ([]StudentGroup, error) {
	return svc.repo.QueryGroups(ctx)
}

func (svc *service) GetGroup(ctx context.Context, id string) (StudentGroup, error) {
	return svc.repo.GetGroup(ctx, id)
}

func (svc *service) GetGroupByName(ctx context.Context, name string) (StudentGroup, error) {
	return svc.repo.GetGroupByName(ctx, core.CleanString(name))
}

func (svc *service) UpdateGroup(ctx context.Context, id string, ug UpdateGroup) (StudentGroup, error) {
	g, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return StudentGroup{}, err
	}
	g.Name = ug.Name
	g.Color = ug.Color
	g.UpdatedAt = core.Now()
	return svc.repo.UpdateGroup(ctx, g)
}

// DeleteGroup removes the group; its students stay on the chart without a group.
func (svc *service) DeleteGroup(ctx context.Context, id string) error {
	return svc.repo.DeleteGroup(ctx, id)
}

func (svc *service) CreateFurniture(ctx context.Context, nf NewFurniture) (Furniture, error) {
	now := core.Now()
	return svc.repo.CreateFurniture(ctx, Furniture{
		ID:           uuid.NewString(),
		ExternalID:   nf.ExternalID,
		Name:         nf.Name,
		Type:         nf.Type,
		X:            nf.X,
		Y:            nf.Y,
		Width:        nf.Width,
		Height:       nf.Height,
		FillColor:    nf.FillColor,
		OutlineColor: nf.OutlineColor,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *service) QueryFurniture(ctx context.Context) ([]Furniture, error) {
	return svc.repo.QueryFurniture(ctx)
}

func (svc *service) GetFurniture(ctx context.Context, id string) (Furniture, error) {
	return svc.repo.GetFurniture(ctx, id)
}

func (svc *service) GetFurnitureByExternalID(ctx context.Context, externalID string) (Furniture, error) {
	return svc.repo.GetFurnitureByExternalID(ctx, core.CleanString(externalID))
}

func (svc *service) UpdateFurniture(ctx context.Context, f Furniture, uf UpdateFurniture) (Furniture, error) {
	uf.apply(&f)
	f.UpdatedAt = core.Now()
	return svc.repo.UpdateFurniture(ctx, f)
}

func (svc *service) MoveFurniture(ctx context.Context, f Furniture, pos Position) (Furniture, error) {
	f.X, f.Y = pos.X, pos.Y
	f.UpdatedAt = core.Now()
	return svc.repo.UpdateFurniture(ctx, f)
}

func (svc *service) DeleteFurniture(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.DeleteFurniture(ctx, ids)
}

func (svc *service) Layout(ctx context.Context) (Layout, error) {
	var (
		l   Layout
		err error
	)
	if l.Students, err = svc.repo.QueryStudents(ctx, nil, nil); err != nil {
		return Layout{}, errors.Wrap(err, "querying students")
	}
	if l.Groups, err = svc.repo.QueryGroups(ctx); err != nil {
		return Layout{}, errors.Wrap(err, "querying groups")
	}
	if l.Furniture, err = svc.repo.QueryFurniture(ctx); err != nil {
		return Layout{}, errors.Wrap(err, "querying furniture")
	}
	return l, nil
}
