package sessionresolve

import "fieldsales-workers/internal/access"

type Input struct {
	AccessToken string `json:"accessToken"`
}

type Output struct {
	Principal   access.Principal `json:"principal"`
	Provisioned bool             `json:"provisioned"`
	Cached      bool             `json:"cached"`
}
