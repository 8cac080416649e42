// internal/app/features/api/api_test.go
package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/badgehub/internal/app/features/api"
	"github.com/dalemusser/badgehub/internal/app/policy"
	"github.com/dalemusser/badgehub/internal/app/store/audit"
	"github.com/dalemusser/badgehub/internal/app/store/badges"
	"github.com/dalemusser/badgehub/internal/app/system/auditlog"
	"github.com/dalemusser/badgehub/internal/app/system/auth"
	"github.com/dalemusser/badgehub/internal/app/system/fieldhistory"
	"github.com/dalemusser/badgehub/internal/app/validation"
	"github.com/dalemusser/badgehub/internal/domain/models"
	"github.com/dalemusser/badgehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRouter(db *mongo.Database) chi.Router {
	logger := zap.NewNop()
	auditStore := audit.New(db)
	h := api.NewHandler(
		db,
		policy.DefaultConfig(),
		validation.NewEngine(db, logger),
		auditlog.New(auditStore, logger, auditlog.Config{Membership: "db", Validation: "db"}),
		fieldhistory.NewRecorder(auditStore, logger),
		logger,
	)
	return api.Routes(h)
}

func do(t *testing.T, router chi.Router, method, target, body string, id *auth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if id != nil {
		req = testutil.WithIdentity(req, id)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("parsing response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestServeBadge_VisibilityConcealment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	router := newRouter(db)

	owner := f.CreateUser(ctx, "Owner", "owner@test.com")
	group := f.CreateGroup(ctx, "Guild")
	f.CreateGroupMembership(ctx, group.ID, owner.ID, models.GroupRoleAdmin)
	badge := f.CreateBadge(ctx, "Members Only", group.ID, owner.ID, 1)

	// members-visibility badge: anonymous caller gets existence concealed
	rec := do(t, router, "GET", "/badges/"+badge.ID.Hex(), "", testutil.VisitorIdentity(policy.ContextAPIVisitor))
	if rec.Code != http.StatusNotFound {
		t.Errorf("visitor: status = %d, want 404", rec.Code)
	}

	member := f.CreateUser(ctx, "Member", "member@test.com")
	f.CreateGroupMembership(ctx, group.ID, member.ID, models.GroupRoleMember)
	rec = do(t, router, "GET", "/badges/"+badge.ID.Hex(), "", testutil.GroupMemberIdentity(member.ID, group.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("member: status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["name"] != "Members Only" {
		t.Errorf("name = %v, want Members Only", body["name"])
	}
	if _, ok := body["required_threshold"]; !ok {
		t.Errorf("required_threshold missing from member view: %v", body)
	}
}

func TestHandleBadgeUpdate_RejectsWholeWriteOnOneBadField(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	router := newRouter(db)

	admin := f.CreateUser(ctx, "Admin", "admin@test.com")
	creator := f.CreateUser(ctx, "Creator", "creator@test.com")
	group := f.CreateGroup(ctx, "Guild")
	f.CreateGroupMembership(ctx, group.ID, admin.ID, models.GroupRoleAdmin)
	f.CreateGroupMembership(ctx, group.ID, creator.ID, models.GroupRoleMember)
	badge := f.CreateBadge(ctx, "Original", group.ID, creator.ID, 1)

	// The creator may edit name but not visibility; one bad field rejects
	// everything.
	creatorID := testutil.GroupMemberIdentity(creator.ID, group.ID)
	rec := do(t, router, "PATCH", "/badges/"+badge.ID.Hex(),
		`{"name":"Renamed","visibility":"public"}`, creatorID)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
	var errBody struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("parsing error body: %v", err)
	}
	if _, ok := errBody.Fields["visibility"]; !ok {
		t.Errorf("fields = %v, want visibility named", errBody.Fields)
	}

	stored, err := badges.New(db).GetByID(ctx, badge.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Name != "Original" {
		t.Errorf("name = %q, rejected write was partially applied", stored.Name)
	}

	// A group admin may set both.
	rec = do(t, router, "PATCH", "/badges/"+badge.ID.Hex(),
		`{"name":"Renamed","visibility":"public"}`, testutil.GroupAdminIdentity(admin.ID, group.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin update: status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	stored, err = badges.New(db).GetByID(ctx, badge.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Name != "Renamed" || stored.Visibility != models.BadgeVisibilityPublic {
		t.Errorf("stored = %q/%q, want Renamed/public", stored.Name, stored.Visibility)
	}

	// Both changed fields carry old_and_new history policies.
	events, err := audit.New(db).Query(ctx, audit.QueryFilter{Category: audit.CategoryHistory})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("history events = %d, want 2", len(events))
	}
}

func TestLogEndpoints_StartShowAndLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	router := newRouter(db)

	creator := f.CreateUser(ctx, "Creator", "creator@test.com")
	group := f.CreateGroup(ctx, "Guild")
	f.CreateGroupMembership(ctx, group.ID, creator.ID, models.GroupRoleAdmin)
	badge := f.CreateBadge(ctx, "First Aid", group.ID, creator.ID, 2)

	founder := f.CreateUser(ctx, "Founder", "founder@test.com")
	f.CreateGroupMembership(ctx, group.ID, founder.ID, models.GroupRoleMember)
	founderID := testutil.GroupMemberIdentity(founder.ID, group.ID)

	// outsiders may not start a log on a members-visibility badge
	outsider := f.CreateUser(ctx, "Outsider", "outsider@test.com")
	rec := do(t, router, "POST", "/badges/"+badge.ID.Hex()+"/logs", "", testutil.IndividualIdentity(outsider.ID))
	if rec.Code != http.StatusNotFound {
		t.Errorf("outsider start: status = %d, want 404", rec.Code)
	}

	// the founding member is self-validated immediately
	rec = do(t, router, "POST", "/badges/"+badge.ID.Hex()+"/logs", "", founderID)
	if rec.Code != http.StatusCreated {
		t.Fatalf("founder start: status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["validation_status"] != models.ValidationValidated {
		t.Errorf("founder validation_status = %v, want validated", body["validation_status"])
	}
	logID := body["id"].(string)

	// starting twice conflicts
	rec = do(t, router, "POST", "/badges/"+badge.ID.Hex()+"/logs", "", founderID)
	if rec.Code != http.StatusConflict {
		t.Errorf("second start: status = %d, want 409", rec.Code)
	}

	// anonymous viewers cannot see the log
	rec = do(t, router, "GET", "/logs/"+logID, "", testutil.VisitorIdentity(policy.ContextAPIVisitor))
	if rec.Code != http.StatusNotFound {
		t.Errorf("visitor show: status = %d, want 404", rec.Code)
	}

	// a second member starts a log and requests validation
	seeker := f.CreateUser(ctx, "Seeker", "seeker@test.com")
	f.CreateGroupMembership(ctx, group.ID, seeker.ID, models.GroupRoleMember)
	seekerID := testutil.GroupMemberIdentity(seeker.ID, group.ID)

	rec = do(t, router, "POST", "/badges/"+badge.ID.Hex()+"/logs", "", seekerID)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeker start: status = %d: %s", rec.Code, rec.Body.String())
	}
	seekerLogID := decodeBody(t, rec)["id"].(string)

	rec = do(t, router, "POST", "/logs/"+seekerLogID+"/request_validation", "", seekerID)
	if rec.Code != http.StatusOK {
		t.Fatalf("request: status = %d: %s", rec.Code, rec.Body.String())
	}

	// only the owner requests or withdraws
	rec = do(t, router, "POST", "/logs/"+seekerLogID+"/withdraw", "", founderID)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-owner withdraw: status = %d, want 403", rec.Code)
	}

	// a requested log cannot be requested again
	rec = do(t, router, "POST", "/logs/"+seekerLogID+"/request_validation", "", seekerID)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("double request: status = %d, want 422", rec.Code)
	}

	// the founding expert endorses; the seeker may not validate themselves
	rec = do(t, router, "POST", "/logs/"+seekerLogID+"/validations",
		`{"verdict":"endorse"}`, seekerID)
	if rec.Code != http.StatusForbidden {
		t.Errorf("self validation: status = %d, want 403", rec.Code)
	}
	rec = do(t, router, "POST", "/logs/"+seekerLogID+"/validations",
		`{"verdict":"endorse"}`, founderID)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expert validation: status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, "GET", "/logs/"+seekerLogID, "", seekerID)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner show: status = %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["validation_status"] != models.ValidationValidated {
		t.Errorf("seeker validation_status = %v, want validated", body["validation_status"])
	}

	// posts append with sequential numbers
	rec = do(t, router, "POST", "/logs/"+seekerLogID+"/posts",
		`{"body":"<p>evidence</p>"}`, seekerID)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add post: status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAppMembershipEndpoints(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	router := newRouter(db)

	owner := f.CreateUser(ctx, "Owner", "owner@test.com")
	app := f.CreateApp(ctx, "Tracker", owner.ID, models.JoinabilityByRequest)

	joiner := f.CreateUser(ctx, "Joiner", "joiner@test.com")
	joinPath := "/apps/" + app.ID.Hex() + "/memberships/users/" + joiner.ID.Hex()

	// unauthenticated join is a 401
	rec := do(t, router, "POST", joinPath, "", testutil.VisitorIdentity(policy.ContextAPIVisitor))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("visitor join: status = %d, want 401", rec.Code)
	}

	// a stranger cannot add someone else
	stranger := f.CreateUser(ctx, "Stranger", "stranger@test.com")
	rec = do(t, router, "POST", joinPath, "", testutil.IndividualIdentity(stranger.ID))
	if rec.Code != http.StatusForbidden {
		t.Errorf("stranger join: status = %d, want 403", rec.Code)
	}

	// self-join on a by-request app stalls pending app approval
	rec = do(t, router, "POST", joinPath, "", testutil.IndividualIdentity(joiner.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("self join: status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != models.MembershipPending {
		t.Errorf("status = %v, want pending", body["status"])
	}

	// rejoining conflicts
	rec = do(t, router, "POST", joinPath, "", testutil.IndividualIdentity(joiner.ID))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate join: status = %d, want 409", rec.Code)
	}

	// only app admins settle the app side
	adminID := testutil.IndividualIdentity(owner.ID)
	adminID.Actor.AdminAppIDs = []primitive.ObjectID{app.ID}
	rec = do(t, router, "PATCH", joinPath, `{"side":"app","approval":"approved"}`, testutil.IndividualIdentity(joiner.ID))
	if rec.Code != http.StatusForbidden {
		t.Errorf("joiner settling app side: status = %d, want 403", rec.Code)
	}
	rec = do(t, router, "PATCH", joinPath, `{"side":"app","approval":"approved"}`, adminID)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin approval: status = %d: %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	if body["status"] != models.MembershipActive {
		t.Errorf("status after approval = %v, want active", body["status"])
	}

	// leaving clears the membership
	rec = do(t, router, "DELETE", joinPath, "", testutil.IndividualIdentity(joiner.ID))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("leave: status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, "DELETE", joinPath, "", adminID)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
}

func TestUserEndpoints_ProfileVisibilityAndSelfEdit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	f := testutil.NewFixtures(t, db)
	router := newRouter(db)

	user := f.CreateUser(ctx, "Pat Example", "pat@test.com")
	other := f.CreateUser(ctx, "Someone Else", "else@test.com")
	path := "/users/" + user.ID.Hex()

	// public profile: name and status visible, email withheld
	rec := do(t, router, "GET", path, "", testutil.VisitorIdentity(policy.ContextAPIVisitor))
	if rec.Code != http.StatusOK {
		t.Fatalf("visitor: status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["full_name"] != "Pat Example" {
		t.Errorf("full_name = %v, want Pat Example", body["full_name"])
	}
	if _, ok := body["email"]; ok {
		t.Errorf("email leaked to visitor: %v", body)
	}

	// the account itself sees its email
	rec = do(t, router, "GET", path, "", testutil.IndividualIdentity(user.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("self: status = %d: %s", rec.Code, rec.Body.String())
	}
	if body = decodeBody(t, rec); body["email"] != "pat@test.com" {
		t.Errorf("self view email = %v, want pat@test.com", body["email"])
	}

	// only the account itself may edit the profile
	rec = do(t, router, "PATCH", path, `{"full_name":"Hijacked"}`, testutil.IndividualIdentity(other.ID))
	if rec.Code != http.StatusForbidden {
		t.Errorf("other user edit: status = %d, want 403", rec.Code)
	}

	// one uneditable field rejects the whole write
	rec = do(t, router, "PATCH", path, `{"full_name":"Pat Renamed","status":"banned"}`, testutil.IndividualIdentity(user.ID))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status write: status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
	var errBody struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("parsing 422 body: %v", err)
	}
	if _, ok := errBody.Fields["status"]; !ok {
		t.Errorf("422 body should name status, got %v", errBody.Fields)
	}

	// self edit applies and returns the filtered record
	rec = do(t, router, "PATCH", path, `{"full_name":"Pat Renamed"}`, testutil.IndividualIdentity(user.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("self edit: status = %d: %s", rec.Code, rec.Body.String())
	}
	if body = decodeBody(t, rec); body["full_name"] != "Pat Renamed" {
		t.Errorf("full_name after edit = %v, want Pat Renamed", body["full_name"])
	}

	// malformed and unknown ids are both concealed
	rec = do(t, router, "GET", "/users/not-an-id", "", testutil.IndividualIdentity(user.ID))
	if rec.Code != http.StatusNotFound {
		t.Errorf("malformed id: status = %d, want 404", rec.Code)
	}
	rec = do(t, router, "GET", "/users/"+primitive.NewObjectID().Hex(), "", testutil.IndividualIdentity(user.ID))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}
}
