// Package skill discovers self-describing WordPress skills: directories
// bundling a SKILL.md metadata/instructions file and a set of parameterized
// PHP payload templates under scripts/.
package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	skillFileName = "SKILL.md"
	scriptsDir    = "scripts"
)

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Skill is one discovered skill bundle.
type Skill struct {
	// Name is the skill identifier from the frontmatter; it must match the
	// skill's directory name.
	Name string

	// Description is a one-line summary for listings.
	Description string

	// Root is the absolute skill directory.
	Root string

	// Instructions is the SKILL.md body below the frontmatter.
	Instructions string

	// Scripts lists the payload template file names under scripts/, sorted.
	Scripts []string
}

type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Discover loads every skill under dir. A missing dir is not an error (no
// skills installed); a subdirectory with a malformed SKILL.md is.
func Discover(dir string) ([]Skill, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var skills []Skill
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		root := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(root, skillFileName)); os.IsNotExist(err) {
			continue
		}
		sk, err := Load(root)
		if err != nil {
			return nil, fmt.Errorf("skill %s: %w", e.Name(), err)
		}
		skills = append(skills, sk)
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills, nil
}

// Load reads and validates one skill directory.
func Load(root string) (Skill, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Skill{}, err
	}

	b, err := os.ReadFile(filepath.Join(abs, skillFileName))
	if err != nil {
		return Skill{}, err
	}

	fmRaw, body, ok := splitFrontmatter(string(b))
	if !ok {
		return Skill{}, fmt.Errorf("%s must contain YAML frontmatter", skillFileName)
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(fmRaw), &fm); err != nil {
		return Skill{}, fmt.Errorf("invalid frontmatter YAML: %w", err)
	}

	fm.Name = strings.TrimSpace(fm.Name)
	fm.Description = strings.TrimSpace(fm.Description)
	if !nameRe.MatchString(fm.Name) {
		return Skill{}, fmt.Errorf("invalid skill name %q", fm.Name)
	}
	if fm.Name != filepath.Base(abs) {
		return Skill{}, fmt.Errorf("skill name %q does not match directory %q", fm.Name, filepath.Base(abs))
	}
	if fm.Description == "" {
		return Skill{}, fmt.Errorf("skill %q has no description", fm.Name)
	}

	scripts, err := listScripts(abs)
	if err != nil {
		return Skill{}, err
	}

	return Skill{
		Name:         fm.Name,
		Description:  fm.Description,
		Root:         abs,
		Instructions: strings.TrimSpace(body),
		Scripts:      scripts,
	}, nil
}

// ScriptPath resolves a script name inside the skill's scripts directory.
// Names escaping the directory are rejected.
func (s Skill) ScriptPath(name string) (string, error) {
	base := filepath.Join(s.Root, scriptsDir)
	p := filepath.Join(base, filepath.Clean("/"+name))
	if !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", fmt.Errorf("script %q is outside the skill", name)
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("skill %q has no script %q", s.Name, name)
	}
	return p, nil
}

func listScripts(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, scriptsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".php") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// splitFrontmatter separates a leading "---" fenced YAML block from the
// document body.
func splitFrontmatter(doc string) (fm, body string, ok bool) {
	s := strings.TrimPrefix(doc, "\ufeff")
	if !strings.HasPrefix(s, "---\n") && !strings.HasPrefix(s, "---\r\n") {
		return "", "", false
	}
	rest := s[strings.Index(s, "\n")+1:]
	for _, end := range []string{"\n---\n", "\n---\r\n"} {
		if i := strings.Index(rest, end); i >= 0 {
			return rest[:i], rest[i+len(end):], true
		}
	}
	if strings.HasSuffix(rest, "\n---") {
		return strings.TrimSuffix(rest, "\n---"), "", true
	}
	return "", "", false
}
