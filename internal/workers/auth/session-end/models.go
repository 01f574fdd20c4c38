package sessionend

import "fieldsales-workers/internal/access"

type Input struct {
	Principal   access.Principal `json:"principal"`
	ClearDrafts bool             `json:"clearDrafts"`
}

type Output struct {
	SessionCleared bool `json:"sessionCleared"`
	DraftsCleared  int  `json:"draftsCleared"`
}
