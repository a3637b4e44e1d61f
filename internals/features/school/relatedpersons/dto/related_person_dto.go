// file: internals/features/school/relatedpersons/dto/related_person_dto.go
package dto

import (
	"github.com/google/uuid"

	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/relatedpersons/model"
)

type UpdateRelatedPersonRequest struct {
	RelatedPersonPersonalCardID *string `json:"related_person_personal_card_id,omitempty" validate:"omitempty,max=64"`
}

type SetRelatedPersonStateRequest struct {
	State string `json:"state" validate:"required,max=16"`
}

type RelatedPersonResponse struct {
	RelatedPersonID             uuid.UUID       `json:"related_person_id"`
	RelatedPersonUUIdentity     *string         `json:"related_person_uu_identity,omitempty"`
	RelatedPersonPersonalCardID *string         `json:"related_person_personal_card_id,omitempty"`
	RelatedPersonState          lifecycle.State `json:"related_person_state"`
	RelatedPersonArtifactID     *string         `json:"related_person_artifact_id,omitempty"`
	RelatedPersonVersion        int             `json:"related_person_version"`
}

func ToRelatedPersonResponse(m *model.RelatedPersonModel) RelatedPersonResponse {
	return RelatedPersonResponse{
		RelatedPersonID:             m.RelatedPersonID,
		RelatedPersonUUIdentity:     m.RelatedPersonUUIdentity,
		RelatedPersonPersonalCardID: m.RelatedPersonPersonalCardID,
		RelatedPersonState:          m.RelatedPersonState,
		RelatedPersonArtifactID:     m.RelatedPersonArtifactID,
		RelatedPersonVersion:        m.RelatedPersonVersion,
	}
}

func ToRelatedPersonResponses(ms []model.RelatedPersonModel) []RelatedPersonResponse {
	out := make([]RelatedPersonResponse, 0, len(ms))
	for i := range ms {
		out = append(out, ToRelatedPersonResponse(&ms[i]))
	}
	return out
}
