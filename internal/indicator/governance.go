package indicator

import "math"

// Answer is one respondent's reply to a survey question. Value is on a 1-5
// Likert scale; a nil Value means the respondent skipped the question.
type Answer struct {
	User    string   `json:"user"`
	Value   *int     `json:"value,omitempty"`
	Weight  *float64 `json:"weight,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

// Question is a survey question and its answers.
type Question struct {
	Text    string   `json:"text"`
	Weight  *float64 `json:"weight,omitempty"`
	Answers []Answer `json:"answers"`
}

// Score maps the weighted mean answer from 1-5 onto 0-100. Answers without a
// weight share 1/n, n being the number of answers with a value.
func (q Question) Score() (int, bool) {
	var valued int
	for _, a := range q.Answers {
		if a.Value != nil {
			valued++
		}
	}
	if valued == 0 {
		return 0, false
	}
	var avg float64
	for _, a := range q.Answers {
		if a.Value == nil {
			continue
		}
		w := 1 / float64(valued)
		if a.Weight != nil {
			w = *a.Weight
		}
		avg += w * float64(*a.Value)
	}
	return int(math.Round((avg - 1) * 25)), true
}

// GovernanceSurvey scores a group of survey questions.
type GovernanceSurvey struct {
	leafBase
	questions []Question
}

func NewGovernanceSurvey() *GovernanceSurvey { return &GovernanceSurvey{} }

func (*GovernanceSurvey) Kind() Kind { return KindGovernance }

func (g *GovernanceSurvey) Questions() []Question {
	out := make([]Question, len(g.questions))
	for i, q := range g.questions {
		q.Answers = append([]Answer(nil), q.Answers...)
		out[i] = q
	}
	return out
}

// SetQuestions replaces the whole survey.
func (g *GovernanceSurvey) SetQuestions(qs []Question) {
	g.questions = make([]Question, len(qs))
	for i, q := range qs {
		q.Answers = append([]Answer(nil), q.Answers...)
		g.questions[i] = q
	}
	g.changed()
}

// AddAnswer appends a to the question with the given text, creating the
// question if needed.
func (g *GovernanceSurvey) AddAnswer(question string, a Answer) {
	for idx := range g.questions {
		if g.questions[idx].Text == question {
			g.questions[idx].Answers = append(g.questions[idx].Answers, a)
			g.changed()
			return
		}
	}
	g.questions = append(g.questions, Question{Text: question, Answers: []Answer{a}})
	g.changed()
}

// SetQuestionWeight sets the weight of a question. It reports false when no
// question has that text.
func (g *GovernanceSurvey) SetQuestionWeight(question string, w float64) bool {
	for idx := range g.questions {
		if g.questions[idx].Text == question {
			g.questions[idx].Weight = &w
			g.changed()
			return true
		}
	}
	return false
}

// ComputeIndicator sums question scores by weight. Questions without a weight
// get 1/(questionCount-1).
//
// TODO: 1/(questionCount-1) over-weights by one question; move to 1/questionCount
// once published scores are re-baselined.
func (g *GovernanceSurvey) ComputeIndicator() (int, bool) {
	defaultWeight := 1.0
	if n := len(g.questions); n > 1 {
		defaultWeight = 1 / float64(n-1)
	}
	var sum float64
	var scored bool
	for _, q := range g.questions {
		s, ok := q.Score()
		if !ok {
			continue
		}
		w := defaultWeight
		if q.Weight != nil {
			w = *q.Weight
		}
		sum += w * float64(s)
		scored = true
	}
	if !scored {
		return 0, false
	}
	return int(math.Round(sum)), true
}
