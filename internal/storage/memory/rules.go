package memory

import (
	"context"
	"strings"
	"sync"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage"
)

// MemoryRiskRuleStore keeps one rule per currency code
type MemoryRiskRuleStore struct {
	mu    sync.RWMutex
	rules map[string]models.RiskRule
}

func NewMemoryRiskRuleStore() *MemoryRiskRuleStore {
	return &MemoryRiskRuleStore{rules: make(map[string]models.RiskRule)}
}

func (m *MemoryRiskRuleStore) FindByCurrency(ctx context.Context, currency string) (models.RiskRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, exists := m.rules[strings.ToUpper(currency)]
	if !exists {
		return models.RiskRule{}, storage.ErrNotFound
	}
	return rule, nil
}

// Save replaces any rule already stored for the same currency
func (m *MemoryRiskRuleStore) Save(ctx context.Context, rule models.RiskRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule.Currency = strings.ToUpper(rule.Currency)
	m.rules[rule.Currency] = rule
	return nil
}

var _ interfaces.RiskRuleStore = (*MemoryRiskRuleStore)(nil)
