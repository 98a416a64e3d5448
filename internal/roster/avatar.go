package roster

import (
	"hash/fnv"
	"strings"
)

// avatarPalette matches the admin UI's avatar color set.
var avatarPalette = []string{
	"#2563EB", // blue
	"#7C3AED", // violet
	"#DB2777", // pink
	"#DC2626", // red
	"#EA580C", // orange
	"#16A34A", // green
	"#0D9488", // teal
	"#4F46E5", // indigo
}

// AvatarColor picks a deterministic palette color from the patient name,
// falling back to the id when the name is empty.
func AvatarColor(name, id string) string {
	key := strings.TrimSpace(name)
	if key == "" {
		key = id
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return avatarPalette[h.Sum32()%uint32(len(avatarPalette))]
}

// Initials returns up to two uppercase initials from a display name.
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "?"
	}
	initials := strings.ToUpper(fields[0][:1])
	if len(fields) > 1 {
		initials += strings.ToUpper(fields[len(fields)-1][:1])
	}
	return initials
}
