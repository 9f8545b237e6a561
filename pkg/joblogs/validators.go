package joblogs

type ListJobLogsQuery struct {
	AfterID  *int     `query:"after_id" json:"after_id,omitempty" validate:"omitempty,min=0"`
	Level    []string `query:"level" json:"level,omitempty" validate:"dive,oneof=info warn error"`
	Rows     bool     `query:"rows" json:"rows,omitempty"`
	FromLine *int     `query:"from_line" json:"from_line,omitempty" validate:"omitempty,min=1"`
	ToLine   *int     `query:"to_line" json:"to_line,omitempty" validate:"omitempty,min=1"`
	Limit    *int     `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=1000"`
}
