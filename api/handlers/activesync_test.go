package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncgate/syncgate/api/middleware"
	"github.com/syncgate/syncgate/interfaces"
	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/repository"
	"github.com/syncgate/syncgate/services/activesync"
)

type stubPrincipalRepo struct{}

func (stubPrincipalRepo) GetByEmail(_ context.Context, email string) (*models.Principal, error) {
	if email == "alice@example.com" {
		return &models.Principal{ID: 1, EmailAddress: email, Secret: "s3cret"}, nil
	}
	return nil, nil
}

type stubDeviceRepo struct {
	provisioned bool
}

func (r *stubDeviceRepo) GetOrCreate(_ context.Context, principalID int64, deviceID, deviceType, userAgent string) (*models.Device, error) {
	d := &models.Device{PrincipalID: principalID, DeviceID: deviceID, DeviceType: deviceType, PolicyKey: "0"}
	if r.provisioned {
		d.Provision = models.ProvisionStateProvisioned
	}
	return d, nil
}

func (r *stubDeviceRepo) Save(context.Context, *models.Device) error { return nil }
func (r *stubDeviceRepo) ListIdleSince(context.Context, int) ([]models.Device, error) {
	return nil, nil
}

type stubCommandService struct {
	lastCommand string
}

func (s *stubCommandService) HandleCommand(_ context.Context, req *interfaces.CommandRequest) (*interfaces.CommandResponse, error) {
	s.lastCommand = req.Command
	return &interfaces.CommandResponse{Body: []byte{0x03, 0x01, 0x6A, 0x00}}, nil
}

func (s *stubCommandService) CancelPing(string) {}

func testRouter(provisioned bool, svc interfaces.ActiveSyncService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()
	repos := &repository.Repositories{
		PrincipalRepository: stubPrincipalRepo{},
		DeviceRepository:    &stubDeviceRepo{provisioned: provisioned},
	}
	r := gin.New()
	auth := middleware.BasicAuthMiddleware(log, repos)
	r.OPTIONS(EASEndpoint, auth, ActiveSyncOptions())
	r.POST(EASEndpoint, auth, ActiveSyncCommand(log, svc, repos))
	return r
}

func easRequest(method, query string) *http.Request {
	req := httptest.NewRequest(method, EASEndpoint+query, bytes.NewReader([]byte{0x03, 0x01, 0x6A, 0x00}))
	req.SetBasicAuth("alice@example.com", "s3cret")
	return req
}

func TestOptionsAdvertisesProtocol(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(true, &stubCommandService{}).ServeHTTP(w, easRequest(http.MethodOptions, ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "14.1", w.Header().Get("MS-Server-ActiveSync"))
	assert.Contains(t, w.Header().Get("MS-ASProtocolVersions"), "14.1")
	assert.Contains(t, w.Header().Get("MS-ASProtocolCommands"), "Sync")
}

func TestMissingCredentialsChallenged(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, EASEndpoint+"?Cmd=Sync&DeviceId=dev1", nil)
	testRouter(true, &stubCommandService{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm="ActiveSync"`, w.Header().Get("WWW-Authenticate"))
}

func TestBadCredentialsRejected(t *testing.T) {
	w := httptest.NewRecorder()
	req := easRequest(http.MethodPost, "?Cmd=Sync&DeviceId=dev1")
	req.SetBasicAuth("alice@example.com", "wrong")
	testRouter(true, &stubCommandService{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnprovisionedDeviceGets449(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(false, &stubCommandService{}).ServeHTTP(w, easRequest(http.MethodPost, "?Cmd=Sync&DeviceId=dev1&DeviceType=iPhone"))

	require.Equal(t, 449, w.Code)
	assert.Equal(t, "0", w.Header().Get(activesync.HeaderPolicyKey))
}

func TestProvisionBypassesGate(t *testing.T) {
	svc := &stubCommandService{}
	w := httptest.NewRecorder()
	testRouter(false, svc).ServeHTTP(w, easRequest(http.MethodPost, "?Cmd=Provision&DeviceId=dev1&DeviceType=iPhone"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Provision", svc.lastCommand)
}

func TestCommandResponseHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(true, &stubCommandService{}).ServeHTTP(w, easRequest(http.MethodPost, "?Cmd=Sync&DeviceId=dev1&User=alice@example.com"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, wbxmlContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "private", w.Header().Get("Cache-Control"))
}

func TestMissingQueryParamsRejected(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(true, &stubCommandService{}).ServeHTTP(w, easRequest(http.MethodPost, "?Cmd=Sync"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserMismatchRejected(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(true, &stubCommandService{}).ServeHTTP(w, easRequest(http.MethodPost, "?Cmd=Sync&DeviceId=dev1&User=mallory@example.com"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
