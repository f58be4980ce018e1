package models

// SurveyError is a typed application error that can be matched with errors.Is
type SurveyError struct {
	Message string
}

func (e SurveyError) Error() string {
	return e.Message
}

var (
	ErrNoActiveSession         = SurveyError{"no active survey session"}
	ErrSessionNotFound         = SurveyError{"saved session not found"}
	ErrEmptyDataset            = SurveyError{"camera dataset has no cameras array"}
	ErrRepositionWithoutCoords = SurveyError{"repositioned camera requires a new latitude and longitude"}
	ErrPhotoIndexOutOfRange    = SurveyError{"photo index out of range"}
	ErrDuplicatePhoto          = SurveyError{"identical photo already attached to this room"}
	ErrEmptyFilename           = SurveyError{"filename cannot be empty"}
	ErrInvalidExtension        = SurveyError{"file extension not allowed"}
	ErrFileTooLarge            = SurveyError{"file size exceeds maximum allowed"}
	ErrPathTraversal           = SurveyError{"invalid path - path traversal detected"}
	ErrUploadNotFound          = SurveyError{"pending upload not found"}
	ErrNoDestination           = SurveyError{"no remote destination configured for this session"}
	ErrSubmissionInProgress    = SurveyError{"a submission attempt is already running"}
)
