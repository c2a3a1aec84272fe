/*
Package twigo is a server-side Twig/Jinja-compatible template engine: a
lexer and recursive-descent parser into a typed node tree, plus a
render-time evaluator over that tree.

Usage example

On startup, build an Engine over a Loader (loader.StringMapLoader for
tests, loader.FileSystemLoader for a views directory):

	engine := twigo.NewEngine(loader.NewFileSystemLoader(".twig", "views"))
	engine.RegisterFunction("now", myNowFunc)

To render a page:

	out, err := engine.Render("account/overview.twig", value.Object(map[string]value.Value{
		"user":    value.String(user.Name),
		"account": accountValue,
	}))
*/
package twigo
