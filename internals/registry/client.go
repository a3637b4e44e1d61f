// file: internals/registry/client.go
package registry

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"schoolkit_backend/internals/helpers/errs"
)

// HTTPFactory builds HTTP-backed registry clients sharing one http.Client.
type HTTPFactory struct {
	Client *http.Client
}

func NewHTTPFactory() *HTTPFactory {
	return &HTTPFactory{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *HTTPFactory) New(cfg Config) Registry {
	return &client{http: f.Client, cfg: cfg}
}

type client struct {
	http *http.Client
	cfg  Config
}

// remoteError is the error envelope the registries reply with.
type remoteError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Known remote error codes re-raised as domain errors so workflows can branch
// on kind instead of string-matching messages.
var remoteCodeKinds = map[string]func(code, msg string) *errs.AppError{
	"locationIsNotInProperState":       errs.StateConflict,
	"artifactIsNotInProperState":       errs.StateConflict,
	"folderDoesNotExist":               errs.NotFound,
	"artifactDoesNotExist":             errs.NotFound,
	"userIsNotAuthorizedToAddArtifact": errs.NotAuthorized,
}

func (c *client) post(ctx context.Context, base, op string, in, out interface{}) error {
	if base == "" {
		return errs.RemoteCall(op, errs.Validation("missingBaseUri", "no base uri configured for "+op))
	}

	var body io.Reader
	if in != nil {
		raw, err := sonic.Marshal(in)
		if err != nil {
			return errs.RemoteCall(op, err)
		}
		body = bytes.NewReader(raw)
	}

	url := strings.TrimRight(base, "/") + "/" + op
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return errs.RemoteCall(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.RemoteCall(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.RemoteCall(op, err)
	}

	if resp.StatusCode >= 400 {
		var re remoteError
		if sonic.Unmarshal(raw, &re) == nil && re.ErrorCode != "" {
			if mk, ok := remoteCodeKinds[re.ErrorCode]; ok {
				domain := mk(re.ErrorCode, re.Message)
				domain.Cause = errs.RemoteCall(op, nil)
				return domain
			}
			return errs.RemoteCall(op+": "+re.ErrorCode, errs.Conflict(re.ErrorCode, re.Message))
		}
		return errs.RemoteCall(op, errs.Conflict("httpStatus", resp.Status))
	}

	if out != nil && len(raw) > 0 {
		if err := sonic.Unmarshal(raw, out); err != nil {
			return errs.RemoteCall(op, err)
		}
	}
	return nil
}

/* =========================================================
   Artifact registry
   ========================================================= */

func (c *client) ArtifactCreate(ctx context.Context, req ArtifactCreateRequest) (*Artifact, error) {
	var out Artifact
	if err := c.post(ctx, c.cfg.ArtifactBase, "artifact/create", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ArtifactSetBasicAttributes(ctx context.Context, id, name, code, desc string) error {
	in := map[string]interface{}{"id": id, "name": name, "code": code, "desc": desc}
	return c.post(ctx, c.cfg.ArtifactBase, "artifact/setBasicAttributes", in, nil)
}

func (c *client) ArtifactSetState(ctx context.Context, id, state, desc string) (*ArtifactEnvironment, error) {
	in := map[string]interface{}{"id": id, "state": state, "desc": desc}
	var out ArtifactEnvironment
	if err := c.post(ctx, c.cfg.ArtifactBase, "artifact/setState", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ArtifactDelete(ctx context.Context, id string) error {
	return c.post(ctx, c.cfg.ArtifactBase, "artifact/delete", map[string]interface{}{"id": id}, nil)
}

func (c *client) ArtifactLoadEnvironment(ctx context.Context, id string) (*ArtifactEnvironment, error) {
	var out ArtifactEnvironment
	if err := c.post(ctx, c.cfg.ArtifactBase, "artifact/loadEnvironment", map[string]interface{}{"id": id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

/* =========================================================
   Unit / role registry
   ========================================================= */

func (c *client) UnitCreate(ctx context.Context, req UnitCreateRequest) (*Unit, error) {
	var out Unit
	if err := c.post(ctx, c.cfg.ArtifactBase, "unit/create", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) UnitSetResponsibleRole(ctx context.Context, unitID, roleID string) error {
	in := map[string]interface{}{"id": unitID, "role": roleID}
	return c.post(ctx, c.cfg.ArtifactBase, "unit/setResponsibleRole", in, nil)
}

func (c *client) RoleCreate(ctx context.Context, name, locationCode string) (*Role, error) {
	in := map[string]interface{}{"name": name, "location_code": locationCode}
	var out Role
	if err := c.post(ctx, c.cfg.ArtifactBase, "role/create", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) RoleAddCast(ctx context.Context, roleID, sideBCode string) error {
	in := map[string]interface{}{"id": roleID, "side_b_code": sideBCode}
	return c.post(ctx, c.cfg.ArtifactBase, "role/addCast", in, nil)
}

func (c *client) RoleListCastsBySideB(ctx context.Context, sideBCode string) ([]RoleCast, error) {
	var out struct {
		ItemList []RoleCast `json:"item_list"`
	}
	if err := c.post(ctx, c.cfg.ArtifactBase, "role/listCastsBySideB", map[string]interface{}{"side_b_code": sideBCode}, &out); err != nil {
		return nil, err
	}
	return out.ItemList, nil
}

func (c *client) RoleGet(ctx context.Context, idOrCode string) (*Role, error) {
	var out Role
	if err := c.post(ctx, c.cfg.ArtifactBase, "role/get", map[string]interface{}{"id": idOrCode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

/* =========================================================
   Relation (AAR) registry
   ========================================================= */

func (c *client) RelationCreate(ctx context.Context, artifactA, artifactB string) error {
	in := map[string]interface{}{"artifact_a": artifactA, "artifact_b": artifactB}
	return c.post(ctx, c.cfg.ArtifactBase, "aar/create", in, nil)
}

func (c *client) RelationDelete(ctx context.Context, artifactA, relationCode, artifactB string) error {
	in := map[string]interface{}{"artifact_a": artifactA, "relation_code": relationCode, "artifact_b": artifactB}
	return c.post(ctx, c.cfg.ArtifactBase, "aar/delete", in, nil)
}

func (c *client) RelationListByArtifactA(ctx context.Context, artifactID string) ([]Relation, error) {
	var out struct {
		ItemList []Relation `json:"item_list"`
	}
	if err := c.post(ctx, c.cfg.ArtifactBase, "aar/listByArtifactA", map[string]interface{}{"id": artifactID}, &out); err != nil {
		return nil, err
	}
	return out.ItemList, nil
}

func (c *client) RelationListByArtifactB(ctx context.Context, artifactID string) ([]Relation, error) {
	var out struct {
		ItemList []Relation `json:"item_list"`
	}
	if err := c.post(ctx, c.cfg.ArtifactBase, "aar/listByArtifactB", map[string]interface{}{"id": artifactID}, &out); err != nil {
		return nil, err
	}
	return out.ItemList, nil
}

/* =========================================================
   Cast verification / person registry / script engine
   ========================================================= */

func (c *client) CastVerify(ctx context.Context, roleIDs []string) ([]string, error) {
	var out struct {
		RoleGroupIfcList []string `json:"role_group_ifc_list"`
	}
	if err := c.post(ctx, c.cfg.ArtifactBase, "castVerification/verify", map[string]interface{}{"role_id_list": roleIDs}, &out); err != nil {
		return nil, err
	}
	return out.RoleGroupIfcList, nil
}

func (c *client) PersonGet(ctx context.Context, q PersonQuery) (*Person, error) {
	var out Person
	if err := c.post(ctx, c.cfg.PersonBase, "person/get", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ScriptRun(ctx context.Context, scriptURI, consoleURI string, dtoIn map[string]interface{}) error {
	in := map[string]interface{}{
		"script_uri":    scriptURI,
		"console_uri":   consoleURI,
		"script_dto_in": dtoIn,
	}
	return c.post(ctx, c.cfg.ScriptBase, "script/run", in, nil)
}
