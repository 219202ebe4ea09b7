package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/avainsure/internal/domain"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

func testAgent() domain.Agent {
	return domain.Agent{
		ID: "agent-7", FirstName: "Mary", LastName: "Jackson", Email: "mary@example.com",
		Phone: "555-0199", LicenseNumber: "LIC-7",
	}
}

func TestAgentService_Sync_DefaultsAgency(t *testing.T) {
	repo := &fakeAgents{}
	svc := NewAgentService(repo, nil)

	got, err := svc.Sync(context.Background(), testAgent())
	require.NoError(t, err)
	assert.Equal(t, "Default Agency", got.AgencyName)

	a := testAgent()
	a.AgencyName = "Langley Partners"
	got, err = svc.Sync(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "Langley Partners", got.AgencyName)
}

func TestAgentService_Sync_Idempotent(t *testing.T) {
	repo := &fakeAgents{}
	svc := NewAgentService(repo, nil)

	first, err := svc.Sync(context.Background(), testAgent())
	require.NoError(t, err)
	second, err := svc.Sync(context.Background(), testAgent())
	require.NoError(t, err)

	assert.Len(t, repo.rows, 1)
	assert.Equal(t, 2, repo.calls)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.AgencyName, second.AgencyName)
}

func TestAgentService_Sync_LicenseConflict(t *testing.T) {
	repo := &fakeAgents{err: &pq.Error{Code: "23505", Constraint: "agents_license_number_key"}}
	svc := NewAgentService(repo, nil)

	_, err := svc.Sync(context.Background(), testAgent())
	require.Error(t, err)
	appErr, ok := util.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
	assert.True(t, appErr.Operational)
}

func TestAgentService_Sync_StoreError(t *testing.T) {
	cause := errors.New("pq: too many connections")
	logger, logs := observedLogger(zapcore.ErrorLevel)
	svc := NewAgentService(&fakeAgents{err: cause}, logger)

	_, err := svc.Sync(context.Background(), testAgent())
	require.Error(t, err)
	appErr, ok := util.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Failed to sync agent", appErr.Message)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	requireNoLeak(t, err, cause)

	entries := logs.FilterMessage("failed to sync agent").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "agent-7", entries[0].ContextMap()["agent_id"])
}
