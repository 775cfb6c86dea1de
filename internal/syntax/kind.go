package syntax

// Kind classifies a normalized syntax node.
type Kind uint8

const (
	KindOther Kind = iota

	// Declaration taxonomy.
	KindSourceFile
	KindClass
	KindInterface
	KindEnum
	KindEnumMember
	KindFunction
	KindMethod
	KindMethodSignature
	KindModule
	KindProperty
	KindPropertySignature
	KindTypeAlias
	KindVariableDeclaration

	// Declaring constructs outside the taxonomy.
	KindConstructor
	KindAccessor
	KindIndexSignature
	KindCallSignature
	KindConstructSignature
	KindTypeParameters
	KindTypeParameter
	KindParameters
	KindParameter
	KindMappedTypeClause
	KindInferType
	KindConditionalType
	KindTypeLiteral
	KindAmbientBlock

	// References.
	KindIdentifier
	KindQualifiedName
	KindTypeReference
	KindHeritageExpression
	KindTypeQuery

	// Statements.
	KindVariableList
	KindImport
	KindImportClause
	KindImportSpecifier
	KindNamespaceImport
	KindImportRequire
	KindExport
	KindExportSpecifier
	KindNamespaceExport
	KindBlock

	// Tokens and trivia.
	KindModifierList
	KindVarKeyword
	KindKeyword
	KindComma
	KindSemicolon
	KindToken
	KindStringLiteral
	KindDocComment
)

var kindNames = [...]string{
	KindOther:               "Other",
	KindSourceFile:          "SourceFile",
	KindClass:               "Class",
	KindInterface:           "Interface",
	KindEnum:                "Enum",
	KindEnumMember:          "EnumMember",
	KindFunction:            "Function",
	KindMethod:              "Method",
	KindMethodSignature:     "MethodSignature",
	KindModule:              "Module",
	KindProperty:            "Property",
	KindPropertySignature:   "PropertySignature",
	KindTypeAlias:           "TypeAlias",
	KindVariableDeclaration: "VariableDeclaration",
	KindConstructor:         "Constructor",
	KindAccessor:            "Accessor",
	KindIndexSignature:      "IndexSignature",
	KindCallSignature:       "CallSignature",
	KindConstructSignature:  "ConstructSignature",
	KindTypeParameters:      "TypeParameters",
	KindTypeParameter:       "TypeParameter",
	KindParameters:          "Parameters",
	KindParameter:           "Parameter",
	KindMappedTypeClause:    "MappedTypeClause",
	KindInferType:           "InferType",
	KindConditionalType:     "ConditionalType",
	KindTypeLiteral:         "TypeLiteral",
	KindAmbientBlock:        "AmbientBlock",
	KindIdentifier:          "Identifier",
	KindQualifiedName:       "QualifiedName",
	KindTypeReference:       "TypeReference",
	KindHeritageExpression:  "HeritageExpression",
	KindTypeQuery:           "TypeQuery",
	KindVariableList:        "VariableList",
	KindImport:              "Import",
	KindImportClause:        "ImportClause",
	KindImportSpecifier:     "ImportSpecifier",
	KindNamespaceImport:     "NamespaceImport",
	KindImportRequire:       "ImportRequire",
	KindExport:              "Export",
	KindExportSpecifier:     "ExportSpecifier",
	KindNamespaceExport:     "NamespaceExport",
	KindBlock:               "Block",
	KindModifierList:        "ModifierList",
	KindVarKeyword:          "VarKeyword",
	KindKeyword:             "Keyword",
	KindComma:               "Comma",
	KindSemicolon:           "Semicolon",
	KindToken:               "Token",
	KindStringLiteral:       "StringLiteral",
	KindDocComment:          "DocComment",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// IsDeclaration reports whether k belongs to the declaration taxonomy: the
// node kinds that own a place in the rolled-up declaration tree.
func (k Kind) IsDeclaration() bool {
	return k >= KindSourceFile && k <= KindVariableDeclaration
}

// IsReference reports whether k is a reference node whose leading
// identifier names another symbol.
func (k Kind) IsReference() bool {
	switch k {
	case KindTypeReference, KindHeritageExpression, KindTypeQuery:
		return true
	}
	return false
}

// primaryKeywords introduce a declaration and receive the synthesized
// export/declare prefix.
var primaryKeywords = map[string]bool{
	"class":     true,
	"interface": true,
	"enum":      true,
	"namespace": true,
	"module":    true,
	"type":      true,
	"function":  true,
}

// IsPrimaryKeyword reports whether n is the keyword token that introduces
// its parent declaration.
func IsPrimaryKeyword(n *Node) bool {
	return n != nil && n.Kind == KindKeyword && primaryKeywords[n.Type]
}

// stripModifiers are removed from root declarations before re-emission.
var stripModifiers = map[string]bool{
	"export":  true,
	"default": true,
	"declare": true,
}

// IsStrippedModifier reports whether n is an export, default or declare
// modifier token.
func IsStrippedModifier(n *Node) bool {
	return n != nil && n.Kind == KindKeyword && stripModifiers[n.Type]
}
