// Package prompt generates the synthetic prompt corpus used by the
// benchmark modes: varied short questions, long analysis contexts, and
// filler prompts sized to an approximate token count.
package prompt

import (
	"fmt"
	"math/rand"
	"strings"
)

var topics = []string{
	"machine learning", "quantum physics", "cooking recipes", "space exploration",
	"ancient history", "renewable energy", "artificial intelligence", "oceanography",
	"philosophy", "biotechnology", "music theory", "climate change",
}

var templates = []string{
	"Explain %s in simple terms.",
	"What are the latest developments in %s?",
	"Write a brief introduction to %s.",
	"Discuss the challenges in %s.",
	"How does %s impact society?",
	"Compare different approaches to %s.",
}

var longContexts = []string{
	`You are analyzing a complex software architecture document. The system consists of multiple microservices including user authentication, payment processing, inventory management, and notification services. Each service has its own database and communicates through REST APIs and message queues. The authentication service uses JWT tokens with refresh mechanisms. The payment service integrates with multiple providers including Stripe, PayPal, and bank transfers. The inventory service tracks products across multiple warehouses with real-time stock updates. The notification service handles email, SMS, and push notifications through various providers.`,

	`You are reviewing a scientific research paper on climate change mitigation strategies. The paper discusses carbon capture technologies, renewable energy integration, sustainable agriculture practices, and policy frameworks. It covers atmospheric carbon dioxide levels, greenhouse gas emissions from various sectors, the role of forests in carbon sequestration, ocean acidification effects, and international cooperation mechanisms. The research includes data from the past 50 years showing temperature trends, precipitation patterns, and extreme weather events.`,

	`You are examining a detailed financial analysis of a multinational corporation. The company operates in technology, healthcare, and renewable energy sectors across 30 countries. The analysis covers revenue streams, profit margins, market share, competitive positioning, regulatory compliance, and risk assessment. It includes quarterly earnings reports, balance sheets, cash flow statements, and forward-looking projections. The company has recently made several acquisitions and is planning an expansion into emerging markets.`,
}

const sizedBase = `In the realm of artificial intelligence and machine learning, we are witnessing unprecedented advances in natural language processing, computer vision, and autonomous systems. These technologies are revolutionizing industries from healthcare and finance to transportation and entertainment. The development of large language models has particularly transformed how we interact with AI systems, enabling more natural and context-aware conversations. Meanwhile, computer vision algorithms are achieving human-level performance in image recognition tasks, enabling applications in medical diagnosis, autonomous vehicles, and security systems. The integration of these technologies is creating new possibilities for automation, decision-making, and human-AI collaboration across various domains.`

var expansionDomains = []string{"healthcare", "education", "manufacturing", "research", "entertainment", "communication"}

var expansionQualities = []string{"efficiency", "accuracy", "innovation", "accessibility", "scalability", "reliability"}

const sizedQuestion = "\n\nBased on this comprehensive overview, please analyze the key trends and provide your insights on the most promising developments. What are the potential challenges and opportunities ahead?"

// Generator produces benchmark prompts. A fixed seed yields a reproducible
// corpus.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Short returns n varied short prompts. Each carries a unique trailing
// aspect so the server cannot serve identical responses from cache.
func (g *Generator) Short(n int) []string {
	prompts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		topic := topics[g.rng.Intn(len(topics))]
		template := templates[g.rng.Intn(len(templates))]
		prompts = append(prompts, fmt.Sprintf(template, topic)+fmt.Sprintf(" Focus on aspect #%d.", i+1))
	}
	return prompts
}

// Long returns n long-context prompts: an analysis scenario followed by a
// numbered question block.
func (g *Generator) Long(n int) []string {
	prompts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		base := longContexts[g.rng.Intn(len(longContexts))]
		question := fmt.Sprintf(`

Based on this context, please provide a detailed analysis addressing the following specific question #%d:
- What are the key challenges and opportunities?
- How would you recommend improving the current situation?
- What metrics would you use to measure success?
- What are the potential risks and mitigation strategies?

Please provide a comprehensive response with specific examples and actionable recommendations.
`, i+1)
		prompts = append(prompts, base+question)
	}
	return prompts
}

// Sized returns a prompt of approximately targetTokens whitespace tokens:
// the base paragraph expanded with varied filler sentences until it reaches
// 90% of the target, then a closing question. Real tokenizer counts run a
// little higher than the whitespace approximation.
func (g *Generator) Sized(targetTokens int) string {
	var sb strings.Builder
	sb.WriteString(sizedBase)

	count := ApproxTokens(sizedBase)
	threshold := int(float64(targetTokens) * 0.9)
	for count < threshold {
		expansion := fmt.Sprintf(" Furthermore, the implications of these advances extend to %s where %s improvements are particularly notable.",
			expansionDomains[g.rng.Intn(len(expansionDomains))],
			expansionQualities[g.rng.Intn(len(expansionQualities))])
		sb.WriteString(expansion)
		count += ApproxTokens(expansion)
	}

	sb.WriteString(sizedQuestion)
	return sb.String()
}

// ApproxTokens estimates the token count of a prompt as its whitespace-split
// word count. Completion tokens are counted exactly from streamed events;
// prompt tokens only need this rough client-side figure.
func ApproxTokens(s string) int {
	return len(strings.Fields(s))
}
