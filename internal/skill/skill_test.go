package skill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, dir, name, skillMD string, scripts map[string]string) string {
	t.Helper()
	root := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "SKILL.md"), []byte(skillMD), 0o600))
	for file, content := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(root, "scripts", file), []byte(content), 0o600))
	}
	return root
}

const validSkillMD = `---
name: backup-db
description: Export the site database and report its size.
---

Run export.php first, then verify.php.
`

func TestLoadValidSkill(t *testing.T) {
	root := writeSkill(t, t.TempDir(), "backup-db", validSkillMD, map[string]string{
		"export.php": "<?php echo 'export';",
		"verify.php": "<?php echo 'verify';",
	})

	sk, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "backup-db", sk.Name)
	assert.Equal(t, "Export the site database and report its size.", sk.Description)
	assert.Equal(t, "Run export.php first, then verify.php.", sk.Instructions)
	assert.Equal(t, []string{"export.php", "verify.php"}, sk.Scripts)
}

func TestLoadRejectsInvalidSkills(t *testing.T) {
	tests := []struct {
		name    string
		dirName string
		skillMD string
	}{
		{
			name:    "no frontmatter",
			dirName: "plain",
			skillMD: "just a readme\n",
		},
		{
			name:    "invalid yaml",
			dirName: "bad-yaml",
			skillMD: "---\nname: [\n---\nbody\n",
		},
		{
			name:    "name mismatch",
			dirName: "actual-dir",
			skillMD: "---\nname: other-name\ndescription: d\n---\nbody\n",
		},
		{
			name:    "missing description",
			dirName: "no-desc",
			skillMD: "---\nname: no-desc\n---\nbody\n",
		},
		{
			name:    "invalid name",
			dirName: "Bad_Name!",
			skillMD: "---\nname: Bad_Name!\ndescription: d\n---\nbody\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeSkill(t, t.TempDir(), tt.dirName, tt.skillMD, nil)
			_, err := Load(root)
			require.Error(t, err)
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "backup-db", validSkillMD, map[string]string{"export.php": "<?php"})
	writeSkill(t, dir, "audit", "---\nname: audit\ndescription: Audit plugins.\n---\nbody\n", nil)

	// non-skill directories are ignored
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-skill"), 0o755))

	skills, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "audit", skills[0].Name)
	assert.Equal(t, "backup-db", skills[1].Name)
}

func TestDiscoverMissingDir(t *testing.T) {
	skills, err := Discover(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestDiscoverPropagatesInvalidSkill(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "broken", "no frontmatter", nil)

	_, err := Discover(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestScriptPath(t *testing.T) {
	root := writeSkill(t, t.TempDir(), "backup-db", validSkillMD, map[string]string{
		"export.php": "<?php",
	})
	sk, err := Load(root)
	require.NoError(t, err)

	p, err := sk.ScriptPath("export.php")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "scripts", "export.php"), p)

	_, err = sk.ScriptPath("missing.php")
	require.Error(t, err)

	// escaping the skill directory is rejected
	_, err = sk.ScriptPath("../SKILL.md")
	require.Error(t, err)
	_, err = sk.ScriptPath("../../../../etc/passwd")
	require.Error(t, err)
}
