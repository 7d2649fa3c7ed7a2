package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/marnevik/prompt-service-api/internal/domain/template"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"github.com/marnevik/prompt-service-api/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type proxyFixture struct {
	store     *memstorage.APIKeyStore
	ledger    *memstorage.CallLedger
	templates *memstorage.TemplateRegistry
	gen       *fakeGenerator
	itemGen   *fakeGenerator
	proxy     *ProxyService
}

func newProxyFixture(t *testing.T) *proxyFixture {
	t.Helper()

	store := memstorage.NewAPIKeyStore()
	ledger := memstorage.NewCallLedger()
	templates := memstorage.NewTemplateRegistry()
	gen := &fakeGenerator{text: "a helpful description"}
	itemGen := &fakeGenerator{text: `{"detailed_description": "desc", "specifications": []}`}

	logger := zap.NewNop()
	accountant := NewUsageService(store, ledger, logger)

	return &proxyFixture{
		store:     store,
		ledger:    ledger,
		templates: templates,
		gen:       gen,
		itemGen:   itemGen,
		proxy:     NewProxyService(gen, itemGen, templates, accountant, logger),
	}
}

func (f *proxyFixture) newKey(t *testing.T, totalCalls int) *apikey.APIKey {
	t.Helper()
	key, err := f.store.Create(context.Background(), &apikey.APIKey{
		Token:      "secret-token",
		Name:       "test key",
		TotalCalls: totalCalls,
	})
	require.NoError(t, err)
	return key
}

func testMeta() RequestMeta {
	return RequestMeta{IPAddress: "203.0.113.7", UserAgent: "test-agent"}
}

func TestExecuteDescriptionQuotaScenario(t *testing.T) {
	f := newProxyFixture(t)
	ctx := context.Background()
	key := f.newKey(t, 2)
	req := &dto.ExecuteRequest{Endpoint: "/tasks", Title: "Clean the warehouse"}

	resp, status, err := f.proxy.ExecuteDescription(ctx, key, req, testMeta())
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	require.NotNil(t, resp.AIResponse)
	assert.Equal(t, "a helpful description", *resp.AIResponse)
	assert.Equal(t, resp.AIResponse, resp.GeneratedDescription)
	assert.Contains(t, resp.PredefinedPrompt, "Clean the warehouse")
	assert.Equal(t, dto.Quota{Used: 1, Remaining: 1, Total: 2}, resp.Quota)

	key, err = f.store.FindByID(ctx, key.ID)
	require.NoError(t, err)
	resp, status, err = f.proxy.ExecuteDescription(ctx, key, req, testMeta())
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, dto.Quota{Used: 2, Remaining: 0, Total: 2}, resp.Quota)

	// Third call: quota exhausted, no provider contact, but one 429 record.
	key, err = f.store.FindByID(ctx, key.ID)
	require.NoError(t, err)
	_, _, err = f.proxy.ExecuteDescription(ctx, key, req, testMeta())
	assert.ErrorIs(t, err, ierr.ErrQuotaExceeded)

	stored, err := f.store.FindByID(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UsedCalls)

	records := f.ledger.Records()
	require.Len(t, records, 3)
	rejected := records[2]
	assert.Equal(t, 429, rejected.StatusCode)
	assert.Equal(t, int64(0), rejected.ExecutionTimeMS)
	require.NotNil(t, rejected.ErrorMessage)
	assert.Equal(t, "Quota exceeded", *rejected.ErrorMessage)

	// Provider was only reached twice.
	assert.Len(t, f.gen.prompts, 2)
}

func TestExecuteDescriptionProviderFailureStillConsumesQuota(t *testing.T) {
	f := newProxyFixture(t)
	f.gen.err = errors.New("upstream timeout")
	ctx := context.Background()
	key := f.newKey(t, 5)

	resp, status, err := f.proxy.ExecuteDescription(ctx, key, &dto.ExecuteRequest{Endpoint: "/tasks", Title: "t"}, testMeta())
	require.NoError(t, err)
	assert.Equal(t, 500, status)
	assert.Nil(t, resp.AIResponse)
	assert.Equal(t, dto.Quota{Used: 1, Remaining: 4, Total: 5}, resp.Quota)

	records := f.ledger.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 500, records[0].StatusCode)
	require.NotNil(t, records[0].ErrorMessage)
	assert.Contains(t, *records[0].ErrorMessage, "upstream timeout")
}

func TestExecuteDescriptionLedgerFailureIsSwallowed(t *testing.T) {
	f := newProxyFixture(t)
	f.ledger.AppendErr = errors.New("ledger down")
	ctx := context.Background()
	key := f.newKey(t, 3)

	resp, status, err := f.proxy.ExecuteDescription(ctx, key, &dto.ExecuteRequest{Endpoint: "/tasks", Title: "t"}, testMeta())
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, 1, resp.Quota.Used)

	// Billing happened even though auditing failed.
	stored, err := f.store.FindByID(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCalls)
	assert.Empty(t, f.ledger.Records())
}

func TestExecuteItemRejectsInvalidProviderJSON(t *testing.T) {
	f := newProxyFixture(t)
	f.itemGen.text = "not json at all"
	ctx := context.Background()
	key := f.newKey(t, 5)

	resp, status, err := f.proxy.ExecuteItem(ctx, key, &dto.ItemRequest{ItemName: "Desk", SpendCategory: "Furniture"}, testMeta())
	require.NoError(t, err)
	assert.Equal(t, 500, status)
	assert.Nil(t, resp.Result)
	assert.Equal(t, 1, resp.Quota.Used)

	records := f.ledger.Records()
	require.Len(t, records, 1)
	require.NotNil(t, records[0].ErrorMessage)
	assert.Contains(t, *records[0].ErrorMessage, "invalid JSON")
}

func TestExecuteItemPassesThroughValidJSON(t *testing.T) {
	f := newProxyFixture(t)
	ctx := context.Background()
	key := f.newKey(t, 5)

	resp, status, err := f.proxy.ExecuteItem(ctx, key, &dto.ItemRequest{ItemName: "Desk", Description: "standing", SpendCategory: "Furniture"}, testMeta())
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.JSONEq(t, f.itemGen.text, string(resp.Result))
	assert.Equal(t, "Desk", resp.ItemName)
	assert.Equal(t, "Furniture", resp.SpendCategory)
}

func TestExecuteTemplateRendersStoredPrompt(t *testing.T) {
	f := newProxyFixture(t)
	ctx := context.Background()
	key := f.newKey(t, 5)

	tpl, err := f.templates.Create(ctx, &template.PromptTemplate{
		Name:           "greeting",
		PromptTemplate: "Say hello to {{name}} about {{topic}}",
		Variables:      []string{"name", "topic"},
		Endpoint:       "/greeting",
	})
	require.NoError(t, err)

	resp, status, err := f.proxy.ExecuteTemplate(ctx, key, tpl.ID, &dto.TemplateExecuteRequest{
		Variables: map[string]string{"name": "Ada"},
	}, testMeta())
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, "Say hello to Ada about {{topic}}", resp.PredefinedPrompt)
	assert.Equal(t, tpl.ID, resp.TemplateID)

	require.Len(t, f.gen.prompts, 1)
	assert.Equal(t, "Say hello to Ada about {{topic}}", f.gen.prompts[0])

	records := f.ledger.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "/greeting", records[0].Endpoint)
}

func TestExecuteTemplateUnknownTemplate(t *testing.T) {
	f := newProxyFixture(t)
	key := f.newKey(t, 5)

	_, _, err := f.proxy.ExecuteTemplate(context.Background(), key, uuid.New(), &dto.TemplateExecuteRequest{}, testMeta())
	assert.ErrorIs(t, err, ierr.ErrNotFound)
	assert.Empty(t, f.ledger.Records())
}

func TestConcurrentCallsConsumeExactlyQuota(t *testing.T) {
	f := newProxyFixture(t)
	ctx := context.Background()

	const quota = 10
	const callers = 15

	key := f.newKey(t, quota)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	rejected := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each caller resolves the key fresh, as the Quota Guard would.
			resolved, err := f.store.FindByID(ctx, key.ID)
			if err != nil {
				return
			}
			_, _, err = f.proxy.ExecuteDescription(ctx, resolved, &dto.ExecuteRequest{
				Endpoint: "/tasks",
				Title:    fmt.Sprintf("task %d", i),
			}, testMeta())

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ierr.ErrQuotaExceeded) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, quota, succeeded)
	assert.Equal(t, callers-quota, rejected)

	stored, err := f.store.FindByID(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, quota, stored.UsedCalls)
	assert.Equal(t, 0, stored.Remaining())

	// Every attempt left exactly one record: quota successes plus 429 rows.
	records := f.ledger.Records()
	charged := 0
	blocked := 0
	for _, rec := range records {
		switch rec.StatusCode {
		case 200:
			charged++
		case 429:
			blocked++
		}
	}
	assert.Equal(t, quota, charged)
	assert.Equal(t, callers-quota, blocked)
}
