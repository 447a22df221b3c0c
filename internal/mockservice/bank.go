// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"fmt"

	"github.com/jeranaias/proctor-tui/internal/assessment"
)

var sectionNames = []string{
	"Networking Fundamentals",
	"Concurrency",
	"Storage Systems",
	"Security Basics",
	"Operating Systems",
}

// item is one bank question with its answer key.
type item struct {
	assessment.Question
	correct int
}

// Bank is a generated, deterministic question bank.
type Bank struct {
	sections    []assessment.Section
	items       [][]item
	perSection  int
	sectionSecs int
}

// NewBank generates sections x perSection questions with four options each
// and a per-section limit of sectionSecs.
func NewBank(sections, perSection, sectionSecs int) *Bank {
	b := &Bank{perSection: perSection, sectionSecs: sectionSecs}
	for s := 1; s <= sections; s++ {
		name := sectionNames[(s-1)%len(sectionNames)]
		if s > len(sectionNames) {
			name = fmt.Sprintf("%s %d", name, s)
		}
		b.sections = append(b.sections, assessment.Section{
			ID:             s,
			Name:           name,
			TimeLimit:      sectionSecs,
			TotalQuestions: perSection,
		})

		row := make([]item, 0, perSection)
		for q := 1; q <= perSection; q++ {
			id := (s-1)*perSection + q
			row = append(row, item{
				Question: assessment.Question{
					ID:     id,
					Prompt: fmt.Sprintf("%s: question %d", name, q),
					Description: fmt.Sprintf("Consider the **%s** scenario below.\n\n"+
						"- Section %d, item %d\n- Choose the single best answer.", name, s, q),
					Options: []string{
						fmt.Sprintf("Option A for item %d", id),
						fmt.Sprintf("Option B for item %d", id),
						fmt.Sprintf("Option C for item %d", id),
						fmt.Sprintf("Option D for item %d", id),
					},
					SectionID: s,
				},
				correct: id % 4,
			})
		}
		b.items = append(b.items, row)
	}
	return b
}

// Sections returns the number of sections.
func (b *Bank) Sections() int { return len(b.sections) }

// PerSection returns the number of questions in every section.
func (b *Bank) PerSection() int { return b.perSection }

// Total returns the number of questions in the bank.
func (b *Bank) Total() int { return len(b.sections) * b.perSection }

// SectionLimit returns the time limit of every section.
func (b *Bank) SectionLimit() int { return b.sectionSecs }

// Section returns section id (1-based).
func (b *Bank) Section(id int) (assessment.Section, bool) {
	if id < 1 || id > len(b.sections) {
		return assessment.Section{}, false
	}
	return b.sections[id-1], true
}

// Question returns question index (0-based) of section id (1-based).
func (b *Bank) Question(section, index int) (assessment.Question, bool) {
	if section < 1 || section > len(b.items) || index < 0 || index >= b.perSection {
		return assessment.Question{}, false
	}
	return b.items[section-1][index].Question, true
}

// Correct reports whether answer is the key for the question.
func (b *Bank) Correct(section, index, answer int) bool {
	if _, ok := b.Question(section, index); !ok {
		return false
	}
	return b.items[section-1][index].correct == answer
}
