// Package twins implements the twin domain: lifecycle CRUD over the store,
// builtin persona templates read from TOML manifests with directory
// hot-reload, and a simulated image-processing pipeline that enriches a twin
// with extracted features and 3D model data after a configured delay.
package twins
