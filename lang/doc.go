// Package lang evaluates cmds scripts.
//
// A script is compiled with [Interpreter.Compile] into an immutable
// [parser.Program] and run with [Interpreter.Evaluate] against a root
// [Scope]. Values are the closed set of [Value] implementations; objects
// are scopes, so a block of plain assignments evaluates to the scope it
// created:
//
//	point = { x = 1; y = 2 }
//	print(point.x + point.y)
//
// Commands prefixed with '$' run synchronously through the interpreter's
// [proc.Service] and yield a [CommandResult]. Commands prefixed with '%'
// yield an [AsyncHandle] that is awaited with a postfix '!':
//
//	h = % sleep 1; echo done
//	print(h!.stdout)
//
// Runtime failures are [*Error] values derived from the sentinels in this
// package and carry the source position where they occurred. Lex and parse
// failures are reported by the lexer and parser packages before any
// evaluation. [FormatError] renders any of them with a source excerpt.
package lang
