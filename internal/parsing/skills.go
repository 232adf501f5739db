package parsing

import "regexp"

// Each pattern captures the matched skill in group 1; the captured text is
// run through CanonicalSkill for display.
var (
	hardSkillPatterns = compileAll(
		`\b((?i:golang|go\s+lang)|Go)\b`,
		`(?i)\b(python)\b`,
		`(?i)\b(java)\b`,
		`(?i)\b(javascript)\b`,
		`(?i)\b(typescript)\b`,
		`(?i)(?:^|[^\w])(c\+\+)`,
		`(?i)(?:^|[^\w])(c#)`,
		`(?i)\b(ruby)\b`,
		`(?i)\b(rust)\b`,
		`(?i)\b(kotlin)\b`,
		`(?i)\b(swift)\b`,
		`(?i)\b(scala)\b`,
		`(?i)\b(php)\b`,
		`(?i)\b(sql)\b`,
		`(?i)\b(html)\b`,
		`(?i)\b(css)\b`,
		`(?i)\b(graphql)\b`,
		`(?i)\b(react(?:\.?js)?)\b`,
		`(?i)\b(vue(?:\.?js)?)\b`,
		`(?i)\b(angular)\b`,
		`(?i)\b(next\.?js)\b`,
		`(?i)\b(node(?:\.?js)?)\b`,
		`(?i)\b(django)\b`,
		`(?i)\b(flask)\b`,
		`(?i)\b(spring(?:\s+boot)?)\b`,
		`(?i)\b((?:ruby\s+on\s+)?rails)\b`,
		`(?i)(?:^|\s)(\.net)\b`,
		`(?i)\b(machine\s+learning)\b`,
		`(?i)\b(deep\s+learning)\b`,
		`(?i)\b(nlp)\b`,
		`(?i)\b(rest(?:ful)?\s*apis?|restful)\b`,
		`(?i)\b(microservices)\b`,
		`(?i)\b(distributed\s+systems)\b`,
		`(?i)\b(data\s+structures)\b`,
		`(?i)\b(ci/cd)\b`,
	)

	toolPatterns = compileAll(
		`(?i)\b(aws|amazon\s+web\s+services)\b`,
		`(?i)\b(gcp|google\s+cloud(?:\s+platform)?)\b`,
		`(?i)\b(azure)\b`,
		`(?i)\b(kubernetes|k8s)\b`,
		`(?i)\b(docker)\b`,
		`(?i)\b(terraform)\b`,
		`(?i)\b(ansible)\b`,
		`(?i)\b(jenkins)\b`,
		`(?i)\b(github\s+actions)\b`,
		`(?i)\b(gitlab)\b`,
		`(?i)\b(git)\b`,
		`(?i)\b(postgres(?:ql)?)\b`,
		`(?i)\b(mysql)\b`,
		`(?i)\b(mongo(?:db)?)\b`,
		`(?i)\b(redis)\b`,
		`(?i)\b(elasticsearch)\b`,
		`(?i)\b(kafka)\b`,
		`(?i)\b(rabbitmq)\b`,
		`(?i)\b(snowflake)\b`,
		`(?i)\b(bigquery)\b`,
		`(?i)\b(dynamodb)\b`,
		`(?i)\b(spark)\b`,
		`(?i)\b(airflow)\b`,
		`(?i)\b(datadog)\b`,
		`(?i)\b(prometheus)\b`,
		`(?i)\b(grafana)\b`,
		`(?i)\b(linux)\b`,
		`(?i)\b(jira)\b`,
		`(?i)\b(figma)\b`,
		`(?i)\b(tableau)\b`,
		`(?i)\b(power\s+bi)\b`,
		`(?i)\b(excel)\b`,
		`(?i)\b(salesforce)\b`,
		`(?i)\b(hubspot)\b`,
	)

	softSkillPatterns = compileAll(
		`(?i)\b(communication(?:\s+skills)?)\b`,
		`(?i)\b(cross-functional)\b`,
		`(?i)\b(collaboration|collaborative)\b`,
		`(?i)\b(stakeholder\s+management)\b`,
		`(?i)\b(problem[- ]solving)\b`,
		`(?i)\b(leadership)\b`,
		`(?i)\b(mentoring|mentorship)\b`,
		`(?i)\b(ownership)\b`,
		`(?i)\b(attention\s+to\s+detail|detail[- ]oriented)\b`,
		`(?i)\b(time\s+management)\b`,
		`(?i)\b(adaptability|adaptable)\b`,
		`(?i)\b(critical\s+thinking)\b`,
		`(?i)\b(teamwork|team\s+player)\b`,
		`(?i)\b(self-starter|self-motivated)\b`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// matchDictionary returns one canonical entry per matching pattern, in
// dictionary order, without duplicates
func matchDictionary(text string, patterns []*regexp.Regexp) []string {
	var found []string
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		found = append(found, CanonicalSkill(m[1]))
	}
	return dedupe(found)
}
