// Package bundle reads the sentences bundle: a version descriptor plus one
// category list and one sentence file per category.
//
// Layout
//
// A bundle is a directory tree rooted at Bundle.Root:
//
//	version.json           -> VersionDescriptor
//	categories.json        -> []Category          (VersionDescriptor.Categories.Path)
//	sentences/<key>.json   -> []Sentence          (Category.Path / SentenceRef.Path)
//
// All paths inside the bundle are relative to Root and must stay inside it.
//
// Every value returned by this package is freshly decoded from disk; nothing
// is cached between calls, so each sync attempt sees the bundle as it is at
// that moment.
//
// Errors
//
// A missing, unreadable or undecodable file yields an error wrapping
// ErrBundleFile. A decodable file whose content fails validation yields an
// error wrapping ErrInvalidBundle.
package bundle
