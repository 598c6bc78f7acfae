package lifecycle

import "strings"

// MojoBindingKey returns groupId:artifactId:goal, followed by the execution
// id when considerExecutionID is set. Bindings without an execution id use
// DefaultExecutionID.
func MojoBindingKey(b *MojoBinding, considerExecutionID bool) string {
	key := b.GroupID + ":" + b.ArtifactID + ":" + b.Goal
	if considerExecutionID {
		key += ":" + b.ExecutionIDOrDefault()
	}
	return key
}

// MojoBindingString renders groupId:artifactId[:version]:goal
func MojoBindingString(b *MojoBinding) string {
	parts := []string{b.GroupID, b.ArtifactID}
	if b.Version != "" {
		parts = append(parts, b.Version)
	}
	parts = append(parts, b.Goal)
	return strings.Join(parts, ":")
}

// ParseMojoBinding parses groupId:artifactId[:version]:goal
func ParseMojoBinding(spec string) (*MojoBinding, bool) {
	parts := strings.Split(spec, ":")
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}
	switch len(parts) {
	case 3:
		return &MojoBinding{GroupID: parts[0], ArtifactID: parts[1], Goal: parts[2]}, true
	case 4:
		return &MojoBinding{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2], Goal: parts[3]}, true
	}
	return nil, false
}

// ParsePluginCoordinate parses groupId:artifactId[:version]
func ParsePluginCoordinate(coord string) (groupID, artifactID, version string, ok bool) {
	parts := strings.Split(coord, ":")
	for _, p := range parts {
		if p == "" {
			return "", "", "", false
		}
	}
	switch len(parts) {
	case 2:
		return parts[0], parts[1], "", true
	case 3:
		return parts[0], parts[1], parts[2], true
	}
	return "", "", "", false
}
