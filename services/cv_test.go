package services

import (
	"bytes"
	"testing"
	"time"

	"networked/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCV(t *testing.T) {
	start := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	u := &models.User{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Headline:  "Analyst",
		Email:     "ada@example.com",
		City:      "London",
		Country:   "UK",
		Bio:       "First programmer. Café regular.",
		Skills:    []models.Skill{{Title: "Math", Technology: "Engines", Level: models.LevelExpert}},
		Experiences: []models.Experience{{
			Company: "Analytical Co", Position: "Engineer", StartDate: start, Current: true,
			Technologies: []string{"Punch cards"},
		}},
		Education: []models.Education{{Institution: "Home", Degree: "Tutoring", StartDate: &start}},
		Projects:  []models.Project{{Title: "Note G", Link: "https://example.com"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCV(&buf, u))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Equal(t, "Ada_Lovelace_CV.pdf", CVFileName(u))
}
