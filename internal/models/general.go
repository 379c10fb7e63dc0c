package models

// ErrorResponse defines API error response format
// @Description code 为错误代码，其余字段只在与错误相关时出现
type ErrorResponse struct {
	Code        string `json:"code" example:"DESCRIPTOR_NOT_FOUND"`
	Message     string `json:"message"`
	VersionID   string `json:"version,omitempty" example:"1.20.4"`
	Artifact    string `json:"artifact,omitempty"`
	Path        string `json:"path,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}
