// Package usage 汇总模型调用用量
package usage

import (
	"context"
	"sort"
	"sync"

	"lexsim-api/internal/domain/service"
	"lexsim-api/pkg/logger"
)

// Totals 某个 workflow/provider/model 组合的累计用量
type Totals struct {
	Workflow string `json:"workflow"`
	Provider string `json:"provider"`
	Model    string `json:"model"`

	Calls            int `json:"calls"`
	Failures         int `json:"failures"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type totalsKey struct {
	workflow, provider, model string
}

// Recorder 把每次调用写入日志并在进程内累计；无持久化，进程重启后清零
type Recorder struct {
	mu     sync.Mutex
	totals map[totalsKey]*Totals
}

func NewRecorder() *Recorder {
	return &Recorder{totals: make(map[totalsKey]*Totals)}
}

var _ service.LLMUsageRecorder = (*Recorder)(nil)

func (r *Recorder) Record(ctx context.Context, in service.LLMUsageInput) {
	if r == nil {
		return
	}
	if in.PromptTokens < 0 || in.CompletionTokens < 0 {
		logger.Warn(ctx, "ignoring negative token usage",
			"prompt_tokens", in.PromptTokens,
			"completion_tokens", in.CompletionTokens,
		)
		return
	}

	args := []any{
		"workflow", in.Workflow,
		"provider", in.Provider,
		"model", in.Model,
		"attempt", in.Attempt,
		"prompt_tokens", in.PromptTokens,
		"completion_tokens", in.CompletionTokens,
		"duration_ms", in.DurationMs,
	}
	if in.Err != nil {
		logger.Debug(ctx, "llm call failed", append(args, "error", in.Err.Error())...)
	} else {
		logger.Debug(ctx, "llm call finished", args...)
	}

	key := totalsKey{in.Workflow, in.Provider, in.Model}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.totals[key]
	if !ok {
		t = &Totals{Workflow: in.Workflow, Provider: in.Provider, Model: in.Model}
		r.totals[key] = t
	}
	t.Calls++
	if in.Err != nil {
		t.Failures++
	}
	t.PromptTokens += in.PromptTokens
	t.CompletionTokens += in.CompletionTokens
}

// Snapshot 按 workflow/provider/model 排序返回累计用量的副本
func (r *Recorder) Snapshot() []Totals {
	r.mu.Lock()
	out := make([]Totals, 0, len(r.totals))
	for _, t := range r.totals {
		out = append(out, *t)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Workflow != b.Workflow {
			return a.Workflow < b.Workflow
		}
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.Model < b.Model
	})
	return out
}
