package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/mingle/internal/domain/model"
	"github.com/okian/mingle/pkg/logger"
)

// Option pools respondents pick from. They are small so that overlaps and
// ties are common.
var (
	interestPool = []string{"Music", "Art", "Sports", "Travel", "Food", "Tech", "Books", "Film"}
	moodOptions  = []string{"Chill", "High-Energy", "Social", "Quiet"}
	genreOptions = []string{"Jazz", "Rock", "Pop", "Techno", "Folk"}
)

const maxSubsetSize = 3

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// subset picks up to maxSubsetSize distinct options.
func subset(options []string) []string {
	k := randomInt(maxSubsetSize + 1)
	perm := make([]string, len(options))
	copy(perm, options)
	for i := len(perm) - 1; i > 0; i-- {
		j := randomInt(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:k]
}

// generateRespondents creates cfg.Users respondents with unique user IDs.
// Odd questions are single-choice and even ones multi-choice.
func generateRespondents(ctx context.Context, cfg *Config, stats *Stats) ([]Respondent, error) {
	logger.Get().Info(ctx, "generating respondents", logger.Int("users", cfg.Users))

	out := make([]Respondent, cfg.Users)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		out[i] = generateRespondent(cfg.Questions)
	}

	stats.Respondents = len(out)
	return out, nil
}

func generateRespondent(questions int) Respondent {
	answers := make([]model.Answer, questions)
	for q := 0; q < questions; q++ {
		id := fmt.Sprintf("Q%d", q+1)
		if q%2 == 0 {
			answers[q] = model.Answer{QuestionID: id, Answer: model.Single(moodOptions[randomInt(len(moodOptions))])}
			continue
		}
		answers[q] = model.Answer{QuestionID: id, Answer: model.Multi(subset(genreOptions)...)}
	}
	return Respondent{
		UserID:    uuid.NewString(),
		Interests: subset(interestPool),
		Answers:   answers,
	}
}
