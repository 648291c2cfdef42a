package navigation

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

// message is any inbound frame: a response, a server request or a notification
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func (m *message) isResponse() bool {
	return m.Method == "" && len(m.ID) > 0
}

// RPC error codes used by language servers
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// RPCError is an error object returned by the server
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// LSP wire types. Lines and characters are 0-based.

type wirePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type wireRange struct {
	Start wirePosition `json:"start"`
	End   wirePosition `json:"end"`
}

func (r wireRange) valid() bool {
	return r.Start.Line >= 0 && r.Start.Character >= 0 &&
		r.End.Line >= r.Start.Line && r.End.Character >= 0
}

type wireLocation struct {
	URI   string    `json:"uri"`
	Range wireRange `json:"range"`
}

// wireLocationLink covers both Location and LocationLink shapes
type wireLocationLink struct {
	URI                  string     `json:"uri"`
	Range                *wireRange `json:"range"`
	TargetURI            string     `json:"targetUri"`
	TargetSelectionRange *wireRange `json:"targetSelectionRange"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type textDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type textDocumentPositionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     wirePosition           `json:"position"`
}

type referenceParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     wirePosition           `json:"position"`
	Context      referenceContext       `json:"context"`
}

type referenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type documentSymbolParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type initializeParams struct {
	ProcessID    int                `json:"processId"`
	RootURI      string             `json:"rootUri"`
	Capabilities clientCapabilities `json:"capabilities"`
}

type clientCapabilities struct {
	TextDocument textDocumentClientCapabilities `json:"textDocument"`
}

type textDocumentClientCapabilities struct {
	DocumentSymbol documentSymbolCapabilities `json:"documentSymbol"`
	Hover          hoverCapabilities          `json:"hover"`
}

type documentSymbolCapabilities struct {
	HierarchicalDocumentSymbolSupport bool `json:"hierarchicalDocumentSymbolSupport"`
}

type hoverCapabilities struct {
	ContentFormat []string `json:"contentFormat"`
}

// wireSymbol decodes both DocumentSymbol and SymbolInformation
type wireSymbol struct {
	Name           string            `json:"name"`
	Detail         string            `json:"detail"`
	Kind           int               `json:"kind"`
	Range          *wireRange        `json:"range"`
	SelectionRange *wireRange        `json:"selectionRange"`
	Children       []json.RawMessage `json:"children"`
	Location       *wireLocation     `json:"location"`
	ContainerName  string            `json:"containerName"`
}

type callHierarchyItem struct {
	Name           string          `json:"name"`
	Kind           int             `json:"kind"`
	Detail         string          `json:"detail,omitempty"`
	URI            string          `json:"uri"`
	Range          wireRange       `json:"range"`
	SelectionRange wireRange       `json:"selectionRange"`
	Data           json.RawMessage `json:"data,omitempty"`
}

type callHierarchyParams struct {
	Item json.RawMessage `json:"item"`
}

type incomingCall struct {
	From json.RawMessage `json:"from"`
}

type outgoingCall struct {
	To json.RawMessage `json:"to"`
}

type hoverResult struct {
	Contents json.RawMessage `json:"contents"`
}

type markedString struct {
	Language string `json:"language"`
	Kind     string `json:"kind"`
	Value    string `json:"value"`
}

// LSP SymbolKind values
const (
	lspFile          = 1
	lspModule        = 2
	lspNamespace     = 3
	lspPackage       = 4
	lspClass         = 5
	lspMethod        = 6
	lspProperty      = 7
	lspField         = 8
	lspConstructor   = 9
	lspEnum          = 10
	lspInterface     = 11
	lspFunction      = 12
	lspVariable      = 13
	lspConstant      = 14
	lspStruct        = 23
	lspTypeParameter = 26
)
