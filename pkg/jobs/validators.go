package jobs

type CreateJobPayload struct {
	Type     string  `json:"type" validate:"required,oneof=import_books import_members export_books export_members export_transactions backup"`
	FileName *string `json:"file_name,omitempty" mod:"trim" validate:"omitempty,max=255"`
}

type ListJobsQuery struct {
	Limit  int      `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status []string `query:"status" json:"status,omitempty" validate:"dive,oneof=pending in_progress completed failed"`
	Type   *string  `query:"type" json:"type,omitempty" validate:"omitempty,oneof=import_books import_members export_books export_members export_transactions backup"`
}
