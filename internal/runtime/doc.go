package runtime

import "github.com/user/widgetsmith/internal/runtime/tools"

// Compile-time interface checks.
var (
	_ Tool = (*tools.Preview)(nil)
	_ Tool = (*tools.WriteFile)(nil)
	_ Tool = (*tools.BundleProject)(nil)
	_ Tool = (*tools.BraveSearch)(nil)
	_ Tool = (*tools.ReadURL)(nil)
)
