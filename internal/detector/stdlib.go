package detector

// stdlibModules is the known-stdlib set consulted by import resolution.
// Not exhaustive: an unlisted name simply falls through to the
// third-party/unresolved branches rather than being misclassified.
var stdlibModules = map[string]bool{
	"os": true, "sys": true, "io": true, "re": true, "json": true,
	"typing": true, "collections": true, "itertools": true, "functools": true,
	"abc": true, "asyncio": true, "contextlib": true, "dataclasses": true,
	"datetime": true, "enum": true, "glob": true, "hashlib": true,
	"inspect": true, "logging": true, "math": true, "multiprocessing": true,
	"pathlib": true, "pickle": true, "queue": true, "random": true,
	"shutil": true, "socket": true, "sqlite3": true, "string": true,
	"struct": true, "subprocess": true, "tempfile": true, "threading": true,
	"time": true, "traceback": true, "unittest": true, "uuid": true,
	"warnings": true, "weakref": true, "xml": true, "zlib": true,
	"copy": true, "csv": true, "heapq": true, "bisect": true,
	"argparse": true, "configparser": true, "importlib": true,
	"platform": true, "signal": true, "textwrap": true, "types": true,
	"urllib": true, "http": true, "email": true, "base64": true,
	"binascii": true, "codecs": true, "decimal": true, "fractions": true,
	"statistics": true, "secrets": true, "shlex": true, "tarfile": true,
	"zipfile": true, "ast": true, "dis": true, "gc": true, "operator": true,
	"array": true,
}

// stdlibPrefixes matches submodules of a stdlib package, e.g.
// "os.path", "collections.abc", "concurrent.futures".
var stdlibPrefixes = map[string]bool{
	"os": true, "collections": true, "concurrent": true, "importlib": true,
	"multiprocessing": true, "unittest": true, "xml": true, "http": true,
	"urllib": true, "email": true, "wsgiref": true, "encodings": true,
	"logging": true, "json": true, "asyncio": true,
}

// builtinNames is the closed set of Python builtin callables/types
// consulted by the function-call and class-inheritance detectors.
var builtinNames = map[string]bool{
	"print": true, "len": true, "range": true, "int": true, "str": true,
	"float": true, "bool": true, "list": true, "dict": true, "set": true,
	"tuple": true, "frozenset": true, "bytes": true, "bytearray": true,
	"object": true, "type": true, "super": true, "isinstance": true,
	"issubclass": true, "hasattr": true, "getattr": true, "setattr": true,
	"delattr": true, "enumerate": true, "zip": true, "map": true,
	"filter": true, "sorted": true, "reversed": true, "sum": true,
	"min": true, "max": true, "abs": true, "round": true, "open": true,
	"iter": true, "next": true, "repr": true, "format": true, "hash": true,
	"id": true, "vars": true, "dir": true, "callable": true, "input": true,
	"Exception": true, "BaseException": true, "ValueError": true,
	"TypeError": true, "KeyError": true, "IndexError": true,
	"AttributeError": true, "RuntimeError": true, "StopIteration": true,
	"NotImplementedError": true, "ImportError": true, "OSError": true,
	"classmethod": true, "staticmethod": true, "property": true,
	"complex": true, "slice": true, "memoryview": true,
}

// knownStandardMetaclasses is consulted by the metaclass detector: a
// class declared with one of these does not warrant a warning.
var knownStandardMetaclasses = map[string]bool{
	"type": true, "ABCMeta": true, "abc.ABCMeta": true, "EnumMeta": true,
	"enum.EnumMeta": true, "EnumType": true,
}

// allowedDecorators is consulted by the decorator detector.
var allowedDecorators = map[string]bool{
	"staticmethod": true, "classmethod": true, "property": true,
	"pytest.fixture": true, "pytest.mark.parametrize": true,
	"pytest.mark.skip": true, "pytest.mark.skipif": true,
	"mock.patch": true, "patch": true, "abstractmethod": true,
	"functools.wraps": true, "wraps": true, "cached_property": true,
	"functools.cached_property": true,
}
