package configuration

type AuthRule struct {
	Path        string
	Method      string // "*" means all methods
	RequireAuth bool   // true means require auth, false means exclude from auth
}

// AuthRulePrefixMatchPath is evaluated in order; the first matching prefix wins.
var AuthRulePrefixMatchPath = []AuthRule{
	{Path: "/api/auth/providers", Method: "*", RequireAuth: false},
	{Path: "/api/auth", Method: "*", RequireAuth: true},
	{Path: "/api/catalog", Method: "GET", RequireAuth: false},
	{Path: "/api/admin", Method: "*", RequireAuth: true},
	{Path: "/api/user", Method: "*", RequireAuth: true},
}

var AuthRuleExactMatchPath = map[string][]AuthRule{
	"/api/login": {
		{Path: "/api/login", Method: "POST", RequireAuth: false},
	},
	"/api/login/2fa": {
		{Path: "/api/login/2fa", Method: "POST", RequireAuth: false},
	},
	"/api/register": {
		{Path: "/api/register", Method: "POST", RequireAuth: false},
	},
	"/api/logout": {
		{Path: "/api/logout", Method: "POST", RequireAuth: false},
	},
	"/api/requests": {
		{Path: "/api/requests", Method: "POST", RequireAuth: false},
	},
	"/api/settings/public": {
		{Path: "/api/settings/public", Method: "GET", RequireAuth: false},
	},
}

// SetAuthRulesForTesting replaces the prefix rules. Test code only.
func SetAuthRulesForTesting(rules []AuthRule) {
	AuthRulePrefixMatchPath = rules
}
