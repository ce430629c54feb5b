// Package bot implements the automatic responder behind the chatbot
// account. It picks the known statement closest to the incoming text and
// replies with the response paired to it, evaluates simple arithmetic
// questions, and records every exchange so later matches improve.
package bot

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// DefaultReply is returned when nothing in the corpus resembles the
// incoming text.
const DefaultReply = "I am sorry, but I do not understand."

// similarityThreshold is the minimum token overlap required before a
// corpus match is trusted over the default reply.
const similarityThreshold = 0.1

type Responder interface {
	Respond(text string) string
}

// Exchange pairs a statement with the reply the bot should give when a
// similar statement comes in.
type Exchange struct {
	Statement string
	Reply     string
}

// DefaultCorpus seeds a new responder with a handful of conversational
// exchanges in the supported languages.
func DefaultCorpus() []Exchange {
	return []Exchange{
		{"hello", "Hi there!"},
		{"hi there!", "How are you doing?"},
		{"how are you doing?", "I'm doing great."},
		{"good morning", "Good morning to you too!"},
		{"what is your name?", "My name is Chat Bot."},
		{"who are you?", "I am a bot that lives in this chat."},
		{"thank you", "You are welcome."},
		{"goodbye", "See you later!"},
		{"hola", "¡Hola! ¿Cómo estás?"},
		{"gracias", "De nada."},
		{"ciao", "Ciao! Come stai?"},
		{"bonjour", "Bonjour ! Comment allez-vous ?"},
		{"merci", "De rien."},
		{"привет", "Привет! Как дела?"},
		{"спасибо", "Пожалуйста."},
	}
}

// BestMatchResponder answers with the reply of the closest known
// statement by token overlap. It is safe for concurrent use: worker
// goroutines handling different threads share one instance.
type BestMatchResponder struct {
	mu        sync.Mutex
	corpus    []Exchange
	lastInput string
}

func NewBestMatchResponder(corpus []Exchange) *BestMatchResponder {
	return &BestMatchResponder{corpus: corpus}
}

// Respond produces a reply for text. Arithmetic questions are evaluated
// directly; everything else is matched against the corpus. The incoming
// statement is learned as a reply to the previous one, so repeated
// conversations teach the bot new exchanges.
func (r *BestMatchResponder) Respond(text string) string {
	text = strings.TrimSpace(text)

	r.mu.Lock()
	if r.lastInput != "" && text != "" {
		r.corpus = append(r.corpus, Exchange{Statement: r.lastInput, Reply: text})
	}
	r.lastInput = text
	corpus := r.corpus
	r.mu.Unlock()

	if reply, ok := evalMath(text); ok {
		return reply
	}

	input := tokenize(text)
	if len(input) == 0 {
		return DefaultReply
	}

	var (
		best      string
		bestScore float64
	)
	for _, ex := range corpus {
		score := similarity(input, tokenize(ex.Statement))
		if score > bestScore {
			best, bestScore = ex.Reply, score
		}
	}
	if bestScore < similarityThreshold {
		return DefaultReply
	}
	return best
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}']+`)

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		tokens[w] = struct{}{}
	}
	return tokens
}

// similarity is the Jaccard index of the two token sets.
func similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var common int
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	return float64(common) / float64(len(a)+len(b)-common)
}

var mathRe = regexp.MustCompile(`(?i)^\s*what\s+is\s+(.+?)\s*\??\s*$`)

// evalMath answers questions of the form "what is <expression>" when the
// remainder parses as arithmetic.
func evalMath(text string) (string, bool) {
	m := mathRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}

	p := &exprParser{input: m[1]}
	val, err := p.parse()
	if err != nil {
		return "", false
	}

	if val == math.Trunc(val) {
		return fmt.Sprintf("%s = %d", m[1], int64(val)), true
	}
	return fmt.Sprintf("%s = %g", m[1], val), true
}

// exprParser is a recursive descent parser for +, -, *, / and
// parentheses over decimal numbers.
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parse() (float64, error) {
	val, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character at %d", p.pos)
	}
	return val, nil
}

func (p *exprParser) expr() (float64, error) {
	val, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			val += rhs
		case '-':
			p.pos++
			rhs, err := p.term()
			if err != nil {
				return 0, err
			}
			val -= rhs
		default:
			return val, nil
		}
	}
}

func (p *exprParser) term() (float64, error) {
	val, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.factor()
			if err != nil {
				return 0, err
			}
			val *= rhs
		case '/':
			p.pos++
			rhs, err := p.factor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			val /= rhs
		default:
			return val, nil
		}
	}
}

func (p *exprParser) factor() (float64, error) {
	p.skipSpace()
	if p.peek() == '(' {
		p.pos++
		val, err := p.expr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return val, nil
	}

	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected a number at %d", start)
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
