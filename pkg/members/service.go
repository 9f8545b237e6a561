package members

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/binder"
	"github.com/shishobooks/circulation/pkg/database"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveMemberOptions struct {
	ID         *int
	MemberCode *string
}

type ListMembersOptions struct {
	Limit      *int
	Offset     *int
	Search     *string
	MemberType *string

	includeTotal bool
}

type UpdateMemberOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateMember(ctx context.Context, member *models.Member) error {
	normalize(member)
	if member.MemberType == "" {
		member.MemberType = models.MemberTypePublic
	}
	if err := validate(member); err != nil {
		return err
	}

	now := time.Now()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = member.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(member).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return translateError(err)
	}

	return nil
}

func (svc *Service) RetrieveMember(ctx context.Context, opts RetrieveMemberOptions) (*models.Member, error) {
	member := &models.Member{}

	q := svc.db.
		NewSelect().
		Model(member)

	if opts.ID != nil {
		q = q.Where("m.id = ?", *opts.ID)
	}
	if opts.MemberCode != nil {
		q = q.Where("m.member_code = ?", *opts.MemberCode)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Member")
		}
		return nil, errors.WithStack(err)
	}

	return member, nil
}

func (svc *Service) ListMembers(ctx context.Context, opts ListMembersOptions) ([]*models.Member, error) {
	m, _, err := svc.listMembersWithTotal(ctx, opts)
	return m, errors.WithStack(err)
}

func (svc *Service) ListMembersWithTotal(ctx context.Context, opts ListMembersOptions) ([]*models.Member, int, error) {
	opts.includeTotal = true
	return svc.listMembersWithTotal(ctx, opts)
}

func (svc *Service) listMembersWithTotal(ctx context.Context, opts ListMembersOptions) ([]*models.Member, int, error) {
	members := []*models.Member{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&members).
		Order("m.name ASC", "m.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Search != nil && *opts.Search != "" {
		like := "%" + *opts.Search + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("m.name LIKE ?", like).
				WhereOr("m.member_code LIKE ?", like).
				WhereOr("m.email LIKE ?", like)
		})
	}
	if opts.MemberType != nil {
		q = q.Where("m.member_type = ?", *opts.MemberType)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return members, total, nil
}

func (svc *Service) UpdateMember(ctx context.Context, member *models.Member, opts UpdateMemberOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	normalize(member)
	if err := validate(member); err != nil {
		return err
	}

	member.UpdatedAt = time.Now()
	columns := append([]string{}, opts.Columns...)
	columns = append(columns, "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(member).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return translateError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Member")
	}

	return nil
}

// DeleteMember removes a member and their closed loan history. Members with a
// book still out can't be deleted.
func (svc *Service) DeleteMember(ctx context.Context, id int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.Member)(nil)).Where("m.id = ?", id).Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Member")
		}

		open, err := ledger.OpenLoansForMember(ctx, tx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return errcodes.Conflict("Member can't be deleted while they have active loans.")
		}

		_, err = tx.NewDelete().Model((*models.Transaction)(nil)).Where("member_id = ?", id).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = tx.NewDelete().Model((*models.Member)(nil)).Where("id = ?", id).Exec(ctx)
		return errors.WithStack(err)
	})
}

func validate(member *models.Member) error {
	switch {
	case len([]rune(member.Name)) < 2:
		return errcodes.ValidationError("Name must be at least 2 characters.")
	case len([]rune(member.MemberCode)) < 3:
		return errcodes.ValidationError("Member code must be at least 3 characters.")
	}

	known := false
	for _, t := range models.MemberTypes {
		if member.MemberType == t {
			known = true
			break
		}
	}
	if !known {
		return errcodes.ValidationError("Member type must be one of student, faculty or public.")
	}

	if member.Email != nil {
		if !binder.ValidEmail(*member.Email) {
			return errcodes.ValidationError("Email is not valid.")
		}
	}
	return nil
}

func normalize(member *models.Member) {
	member.Name = strings.TrimSpace(member.Name)
	member.MemberCode = strings.TrimSpace(member.MemberCode)
	member.MemberType = strings.ToLower(strings.TrimSpace(member.MemberType))
	if member.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*member.Email))
		if email == "" {
			member.Email = nil
		} else {
			member.Email = &email
		}
	}
}

func translateError(err error) error {
	if _, column, ok := database.UniqueViolation(err); ok {
		switch column {
		case "member_code":
			return errcodes.Conflict("A member with this member code already exists.")
		case "email":
			return errcodes.Conflict("A member with this email already exists.")
		}
	}
	if _, ok := database.CheckViolation(err); ok {
		return errcodes.ValidationError("Member failed a data check.")
	}
	return errors.WithStack(err)
}
