package members

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/models"
)

type handler struct {
	memberService *Service
	ledgerService *ledger.Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateMemberPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	member := &models.Member{
		Name:       params.Name,
		MemberCode: params.MemberCode,
		Email:      params.Email,
		Phone:      params.Phone,
		Address:    params.Address,
		MemberType: params.MemberType,
		Notes:      params.Notes,
	}
	if err := h.memberService.CreateMember(ctx, member); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, member))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Member")
	}

	member, err := h.memberService.RetrieveMember(ctx, RetrieveMemberOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, member))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListMembersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	members, total, err := h.memberService.ListMembersWithTotal(ctx, ListMembersOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		Search:     params.Search,
		MemberType: params.MemberType,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Members []*models.Member `json:"members"`
		Total   int              `json:"total"`
	}{members, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Member")
	}

	params := UpdateMemberPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	member, err := h.memberService.RetrieveMember(ctx, RetrieveMemberOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateMemberOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != member.Name {
		member.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.MemberCode != nil && *params.MemberCode != member.MemberCode {
		member.MemberCode = *params.MemberCode
		opts.Columns = append(opts.Columns, "member_code")
	}
	if params.Email != nil {
		member.Email = emptyToNil(params.Email)
		opts.Columns = append(opts.Columns, "email")
	}
	if params.Phone != nil {
		member.Phone = emptyToNil(params.Phone)
		opts.Columns = append(opts.Columns, "phone")
	}
	if params.Address != nil {
		member.Address = emptyToNil(params.Address)
		opts.Columns = append(opts.Columns, "address")
	}
	if params.MemberType != nil && *params.MemberType != member.MemberType {
		member.MemberType = *params.MemberType
		opts.Columns = append(opts.Columns, "member_type")
	}
	if params.Notes != nil {
		member.Notes = emptyToNil(params.Notes)
		opts.Columns = append(opts.Columns, "notes")
	}

	if err := h.memberService.UpdateMember(ctx, member, opts); err != nil {
		return errors.WithStack(err)
	}

	member, err = h.memberService.RetrieveMember(ctx, RetrieveMemberOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, member))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Member")
	}

	if err := h.memberService.DeleteMember(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// transactions lists a member's loan history, newest first.
func (h *handler) transactions(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Member")
	}

	params := ListLoansQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if _, err := h.memberService.RetrieveMember(ctx, RetrieveMemberOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	txns, total, err := h.ledgerService.ListTransactionsWithTotal(ctx, ledger.ListTransactionsOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		MemberID: &id,
		OpenOnly: params.Open,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Transactions []*models.Transaction `json:"transactions"`
		Total        int                   `json:"total"`
	}{txns, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
