package auth

// Permission names are opaque identifiers checked for membership in a
// claims set; there is no hierarchy and no wildcards.
const (
	PermUserManage     = "user.manage"
	PermArticleCreate  = "article.create"
	PermArticleUpdate  = "article.update"
	PermArticleArchive = "article.archive"
	PermArticleApprove = "article.approve"
)

// BuiltinPermissions is the seeded permission catalog.
var BuiltinPermissions = []string{
	PermUserManage,
	PermArticleCreate,
	PermArticleUpdate,
	PermArticleArchive,
	PermArticleApprove,
}

// AuthorPermissions is the subset granted to department authors.
var AuthorPermissions = []string{
	PermArticleCreate,
	PermArticleUpdate,
}
