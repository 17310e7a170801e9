package nlp

// DefaultSkills is the skill dictionary the keyword scorer recognizes.
// Each key is the canonical name; values are aliases.
var DefaultSkills = map[string][]string{
	"go":               {"golang"},
	"python":           nil,
	"java":             nil,
	"javascript":       {"js"},
	"typescript":       {"ts"},
	"rust":             nil,
	"ruby":             nil,
	"php":              nil,
	"kotlin":           nil,
	"swift":            nil,
	"scala":            nil,
	"sql":              nil,
	"postgresql":       {"postgres"},
	"mysql":            nil,
	"mongodb":          {"mongo"},
	"redis":            nil,
	"kafka":            nil,
	"rabbitmq":         nil,
	"elasticsearch":    nil,
	"docker":           nil,
	"kubernetes":       {"k8s"},
	"terraform":        nil,
	"aws":              {"amazon web services"},
	"gcp":              {"google cloud"},
	"azure":            nil,
	"linux":            nil,
	"git":              nil,
	"ci cd":            {"cicd"},
	"rest api":         {"rest", "restful"},
	"graphql":          nil,
	"grpc":             nil,
	"microservices":    nil,
	"react":            {"reactjs"},
	"vue":              {"vuejs"},
	"angular":          nil,
	"node js":          {"nodejs"},
	"django":           nil,
	"flask":            nil,
	"spring":           nil,
	"machine learning": {"ml"},
	"data analysis":    nil,
	"prometheus":       nil,
	"grafana":          nil,
}

// SkillVariants returns the normalized spellings that count as a match for skill.
func SkillVariants(skill string, aliases []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range append([]string{skill}, aliases...) {
		n := Normalize(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
