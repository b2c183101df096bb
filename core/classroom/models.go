package classroom

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
)

const (
	DefaultIconWidth  = 150.0
	DefaultIconHeight = 100.0
)

type Student struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Nickname     string    `json:"nickname,omitempty"`
	Gender       string    `json:"gender,omitempty"`
	Initials     string    `json:"initials"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Width        *float64  `json:"width,omitempty"`
	Height       *float64  `json:"height,omitempty"`
	FillColor    string    `json:"fill_color,omitempty"`
	OutlineColor string    `json:"outline_color,omitempty"`
	TextColor    string    `json:"text_color,omitempty"`
	GroupID      string    `json:"group_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// DisplayName is the nickname when set, the full name otherwise.
func (s Student) DisplayName() string {
	if s.Nickname != "" {
		return s.Nickname
	}
	return s.FullName()
}

// IconSize returns the student's custom icon size, or the default one.
func (s Student) IconSize() (w, h float64) {
	w, h = DefaultIconWidth, DefaultIconHeight
	if s.Width != nil && *s.Width > 0 {
		w = *s.Width
	}
	if s.Height != nil && *s.Height > 0 {
		h = *s.Height
	}
	return w, h
}

// Initials builds upper-cased initials from the first letters of the first and last names.
func Initials(firstName, lastName string) string {
	var b strings.Builder
	for _, name := range []string{firstName, lastName} {
		for _, r := range strings.TrimSpace(name) {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return b.String()
}

type StudentGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Furniture struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id,omitempty"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	FillColor    string    `json:"fill_color,omitempty"`
	OutlineColor string    `json:"outline_color,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Layout is a snapshot of everything drawn on the seating chart.
type Layout struct {
	Students  []Student      `json:"students"`
	Groups    []StudentGroup `json:"groups"`
	Furniture []Furniture    `json:"furniture"`
}

type Position struct {
	X float64 `json:"x" validate:"min=0"`
	Y float64 `json:"y" validate:"min=0"`
}

func (p Position) Validate(validate *validator.Validate) error { return validate.Struct(p) }

// NewStudent contains information needed to create a new Student.
// Without a position the student is auto-placed on the first free spot.
type NewStudent struct {
	ExternalID   string   `json:"external_id" validate:"omitempty,max=100"`
	FirstName    string   `json:"first_name" validate:"required,max=100"`
	LastName     string   `json:"last_name" validate:"max=100"`
	Nickname     string   `json:"nickname" validate:"max=100"`
	Gender       string   `json:"gender" validate:"max=30"`
	Initials     string   `json:"initials" validate:"omitempty,max=5,initials"`
	X            *float64 `json:"x" validate:"omitempty,min=0"`
	Y            *float64 `json:"y" validate:"omitempty,min=0"`
	Width        *float64 `json:"width" validate:"omitempty,gt=0"`
	Height       *float64 `json:"height" validate:"omitempty,gt=0"`
	FillColor    string   `json:"fill_color" validate:"omitempty,canvascolor"`
	OutlineColor string   `json:"outline_color" validate:"omitempty,canvascolor"`
	TextColor    string   `json:"text_color" validate:"omitempty,canvascolor"`
	GroupID      string   `json:"group_id"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.ExternalID = core.CleanString(ns.ExternalID)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Nickname = core.CleanString(ns.Nickname)
	ns.Gender = core.CleanString(ns.Gender)
	ns.Initials = strings.ToUpper(core.CleanString(ns.Initials))
	ns.GroupID = core.CleanString(ns.GroupID)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if err := svc.CheckExternalIDUniqueness(ctx, ns.ExternalID); err != nil {
		return err
	}
	return checkGroupExists(ctx, svc, ns.GroupID)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left untouched.
type UpdateStudent struct {
	FirstName    *string  `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName     *string  `json:"last_name" validate:"omitempty,max=100"`
	Nickname     *string  `json:"nickname" validate:"omitempty,max=100"`
	Gender       *string  `json:"gender" validate:"omitempty,max=30"`
	Initials     *string  `json:"initials" validate:"omitempty,max=5,initials"`
	X            *float64 `json:"x" validate:"omitempty,min=0"`
	Y            *float64 `json:"y" validate:"omitempty,min=0"`
	Width        *float64 `json:"width" validate:"omitempty,gt=0"`
	Height       *float64 `json:"height" validate:"omitempty,gt=0"`
	FillColor    *string  `json:"fill_color" validate:"omitempty,canvascolor|len=0"`
	OutlineColor *string  `json:"outline_color" validate:"omitempty,canvascolor|len=0"`
	TextColor    *string  `json:"text_color" validate:"omitempty,canvascolor|len=0"`
	GroupID      *string  `json:"group_id"`
}

func cleanPtr(s *string) {
	if s != nil {
		*s = core.CleanString(*s)
	}
}

func (us *UpdateStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	for _, s := range []*string{us.FirstName, us.LastName, us.Nickname, us.Gender, us.Initials, us.GroupID} {
		cleanPtr(s)
	}
	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.GroupID != nil {
		return checkGroupExists(ctx, svc, *us.GroupID)
	}
	return nil
}

func (us UpdateStudent) apply(s *Student) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&s.FirstName, us.FirstName)
	setStr(&s.LastName, us.LastName)
	setStr(&s.Nickname, us.Nickname)
	setStr(&s.Gender, us.Gender)
	setStr(&s.FillColor, us.FillColor)
	setStr(&s.OutlineColor, us.OutlineColor)
	setStr(&s.TextColor, us.TextColor)
	setStr(&s.GroupID, us.GroupID)
	if us.Initials != nil {
		s.Initials = strings.ToUpper(*us.Initials)
	}
	if us.X != nil {
		s.X = *us.X
	}
	if us.Y != nil {
		s.Y = *us.Y
	}
	if us.Width != nil {
		s.Width = us.Width
	}
	if us.Height != nil {
		s.Height = us.Height
	}
	if s.Initials == "" || (us.Initials == nil && (us.FirstName != nil || us.LastName != nil)) {
		s.Initials = Initials(s.FirstName, s.LastName)
	}
}

func checkGroupExists(ctx context.Context, svc Service, groupID string) error {
	if groupID == "" {
		return nil
	}
	if _, err := svc.GetGroup(ctx, groupID); err != nil {
		if errors.Cause(err) == ErrGroupNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "group_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding group")
	}
	return nil
}

type QueryFilter struct {
	Search   string   `query:"search"`
	GroupIDs []string `query:"group"`
	IDs      []string `query:"id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.GroupIDs == nil && qf.IDs == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type NewGroup struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"required,canvascolor"`
}

func (ng *NewGroup) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Color = core.CleanString(ng.Color)
	if err := validate.Struct(ng); err != nil {
		return err
	}
	return svc.CheckGroupNameUniqueness(ctx, ng.Name)
}

type UpdateGroup struct {
	Name  string `json:"name" validate:"omitempty,max=100"`
	Color string `json:"color" validate:"omitempty,canvascolor"`
}

func (ug *UpdateGroup) Validate(ctx context.Context, orig StudentGroup, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(ug.Name); name != "" {
		ug.Name = name
	} else {
		ug.Name = orig.Name
	}
	if color := core.CleanString(ug.Color); color != "" {
		ug.Color = color
	} else {
		ug.Color = orig.Color
	}
	if err := validate.Struct(ug); err != nil {
		return err
	}
	return svc.CheckGroupNameUniqueness(ctx, ug.Name, orig)
}

type NewFurniture struct {
	ExternalID   string  `json:"external_id" validate:"omitempty,max=100"`
	Name         string  `json:"name" validate:"required,max=100"`
	Type         string  `json:"type" validate:"max=50"`
	X            float64 `json:"x" validate:"min=0"`
	Y            float64 `json:"y" validate:"min=0"`
	Width        float64 `json:"width" validate:"required,gt=0"`
	Height       float64 `json:"height" validate:"required,gt=0"`
	FillColor    string  `json:"fill_color" validate:"omitempty,canvascolor"`
	OutlineColor string  `json:"outline_color" validate:"omitempty,canvascolor"`
}

func (nf *NewFurniture) Validate(validate *validator.Validate) error {
	nf.ExternalID = core.CleanString(nf.ExternalID)
	nf.Name = core.CleanString(nf.Name)
	nf.Type = core.CleanString(nf.Type)
	return validate.Struct(nf)
}

type UpdateFurniture struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Type         *string  `json:"type" validate:"omitempty,max=50"`
	X            *float64 `json:"x" validate:"omitempty,min=0"`
	Y            *float64 `json:"y" validate:"omitempty,min=0"`
	Width        *float64 `json:"width" validate:"omitempty,gt=0"`
	Height       *float64 `json:"height" validate:"omitempty,gt=0"`
	FillColor    *string  `json:"fill_color" validate:"omitempty,canvascolor|len=0"`
	OutlineColor *string  `json:"outline_color" validate:"omitempty,canvascolor|len=0"`
}

func (uf *UpdateFurniture) Validate(validate *validator.Validate) error {
	cleanPtr(uf.Name)
	cleanPtr(uf.Type)
	return validate.Struct(uf)
}

func (uf UpdateFurniture) apply(f *Furniture) {
	if uf.Name != nil {
		f.Name = *uf.Name
	}
	if uf.Type != nil {
		f.Type = *uf.Type
	}
	if uf.X != nil {
		f.X = *uf.X
	}
	if uf.Y != nil {
		f.Y = *uf.Y
	}
	if uf.Width != nil {
		f.Width = *uf.Width
	}
	if uf.Height != nil {
		f.Height = *uf.Height
	}
	if uf.FillColor != nil {
		f.FillColor = *uf.FillColor
	}
	if uf.OutlineColor != nil {
		f.OutlineColor = *uf.OutlineColor
	}
}
