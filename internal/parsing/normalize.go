package parsing

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// skillNormalizations maps lowercase matched text to the canonical display form
var skillNormalizations = map[string]string{
	"golang":                 "Go",
	"go":                     "Go",
	"go lang":                "Go",
	"javascript":             "JavaScript",
	"js":                     "JavaScript",
	"typescript":             "TypeScript",
	"ts":                     "TypeScript",
	"python":                 "Python",
	"java":                   "Java",
	"c++":                    "C++",
	"c#":                     "C#",
	"ruby":                   "Ruby",
	"rust":                   "Rust",
	"kotlin":                 "Kotlin",
	"swift":                  "Swift",
	"scala":                  "Scala",
	"php":                    "PHP",
	"sql":                    "SQL",
	"html":                   "HTML",
	"css":                    "CSS",
	"graphql":                "GraphQL",
	"react":                  "React",
	"react.js":               "React",
	"reactjs":                "React",
	"vue":                    "Vue",
	"vue.js":                 "Vue",
	"vuejs":                  "Vue",
	"angular":                "Angular",
	"next.js":                "Next.js",
	"nextjs":                 "Next.js",
	"node":                   "Node.js",
	"node.js":                "Node.js",
	"nodejs":                 "Node.js",
	"django":                 "Django",
	"flask":                  "Flask",
	"spring":                 "Spring",
	"spring boot":            "Spring Boot",
	"rails":                  "Rails",
	"ruby on rails":          "Rails",
	".net":                   ".NET",
	"machine learning":       "Machine Learning",
	"ml":                     "Machine Learning",
	"deep learning":          "Deep Learning",
	"nlp":                    "NLP",
	"rest":                   "REST APIs",
	"rest api":               "REST APIs",
	"rest apis":              "REST APIs",
	"restful":                "REST APIs",
	"restful api":            "REST APIs",
	"restful apis":           "REST APIs",
	"microservices":          "Microservices",
	"distributed systems":    "Distributed Systems",
	"data structures":        "Data Structures",
	"ci/cd":                  "CI/CD",
	"aws":                    "AWS",
	"amazon web services":    "AWS",
	"gcp":                    "GCP",
	"google cloud":           "GCP",
	"google cloud platform":  "GCP",
	"azure":                  "Azure",
	"k8s":                    "Kubernetes",
	"kubernetes":             "Kubernetes",
	"docker":                 "Docker",
	"terraform":              "Terraform",
	"ansible":                "Ansible",
	"jenkins":                "Jenkins",
	"github actions":         "GitHub Actions",
	"gitlab":                 "GitLab",
	"git":                    "Git",
	"postgres":               "PostgreSQL",
	"postgresql":             "PostgreSQL",
	"mysql":                  "MySQL",
	"mongodb":                "MongoDB",
	"mongo":                  "MongoDB",
	"redis":                  "Redis",
	"elasticsearch":          "Elasticsearch",
	"kafka":                  "Kafka",
	"rabbitmq":               "RabbitMQ",
	"snowflake":              "Snowflake",
	"bigquery":               "BigQuery",
	"dynamodb":               "DynamoDB",
	"datadog":                "Datadog",
	"prometheus":             "Prometheus",
	"grafana":                "Grafana",
	"jira":                   "Jira",
	"figma":                  "Figma",
	"tableau":                "Tableau",
	"power bi":               "Power BI",
	"excel":                  "Excel",
	"salesforce":             "Salesforce",
	"hubspot":                "HubSpot",
	"linux":                  "Linux",
	"spark":                  "Spark",
	"airflow":                "Airflow",
	"communication":          "Communication",
	"communication skills":   "Communication",
	"cross-functional":       "Cross-functional Collaboration",
	"collaboration":          "Collaboration",
	"collaborative":          "Collaboration",
	"stakeholder management": "Stakeholder Management",
	"problem solving":        "Problem Solving",
	"problem-solving":        "Problem Solving",
	"leadership":             "Leadership",
	"mentoring":              "Mentoring",
	"mentorship":             "Mentoring",
	"ownership":              "Ownership",
	"attention to detail":    "Attention to Detail",
	"detail-oriented":        "Attention to Detail",
	"detail oriented":        "Attention to Detail",
	"time management":        "Time Management",
	"adaptability":           "Adaptability",
	"adaptable":              "Adaptability",
	"critical thinking":      "Critical Thinking",
	"teamwork":               "Teamwork",
	"team player":            "Teamwork",
	"self-starter":           "Self-starter",
	"self-motivated":         "Self-starter",
}

// CanonicalSkill normalizes a matched skill name to its display form.
// Known names come from the lookup table; anything else gets its first
// letter capitalized.
func CanonicalSkill(skillName string) string {
	normalized := strings.Join(strings.Fields(skillName), " ")
	if normalized == "" {
		return ""
	}

	lower := strings.ToLower(normalized)
	if canonical, ok := skillNormalizations[lower]; ok {
		return canonical
	}

	return capitalizeFirst(lower)
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// dedupe keeps the first occurrence of each value, comparing case-insensitively
func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
