package csvio

import (
	"io"
	"strconv"

	"github.com/shishobooks/circulation/pkg/models"
)

var memberColumns = []string{
	"id", "name", "member_code", "email", "phone", "address", "member_type", "notes",
}

// WriteMembers writes members with a header row.
func WriteMembers(w io.Writer, members []*models.Member) error {
	records := make([][]string, 0, len(members))
	for _, m := range members {
		records = append(records, []string{
			strconv.Itoa(m.ID),
			m.Name,
			m.MemberCode,
			formatOptional(m.Email),
			formatOptional(m.Phone),
			formatOptional(m.Address),
			m.MemberType,
			formatOptional(m.Notes),
		})
	}
	return writeAll(w, memberColumns, records)
}

// ReadMembers decodes a members CSV. name and member_code are required.
func ReadMembers(r io.Reader) ([]Row[models.Member], error) {
	return readAll(r, []string{"name", "member_code"}, func(h header, record []string) (*models.Member, error) {
		return &models.Member{
			Name:       h.get(record, "name"),
			MemberCode: h.get(record, "member_code"),
			Email:      h.optional(record, "email"),
			Phone:      h.optional(record, "phone"),
			Address:    h.optional(record, "address"),
			MemberType: h.get(record, "member_type"),
			Notes:      h.optional(record, "notes"),
		}, nil
	})
}
