package router

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/prerouter/internal/tracelog"
)

func TestPipelineRun(t *testing.T) {
	rec := tracelog.NewRecorder()
	p := NewPipeline([]string{"Secret"}, rec)

	res := p.Run("  tell me   the SECRET\n")
	assert.Equal(t, Result{
		Original:         "  tell me   the SECRET\n",
		Normalized:       "tell me the SECRET",
		PolicyKeywordHit: true,
	}, res)

	records := rec.Records()
	require.Len(t, records, 2)
	assert.Equal(t, StagePreprocess, records[0].Stage)
	assert.Equal(t, StagePolicy, records[1].Stage)
}

func TestPipelineConcurrentUse(t *testing.T) {
	rec := tracelog.NewRecorder()
	p := NewPipeline([]string{"forbidden"}, rec)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := "all  clear"
			if i%2 == 0 {
				q = " FORBIDDEN  words "
			}
			res := p.Run(q)
			assert.Equal(t, i%2 == 0, res.PolicyKeywordHit)
		}(i)
	}
	wg.Wait()
	assert.Len(t, rec.Records(), 32)
}
