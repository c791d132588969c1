package bundler

// hostPage is the fixed template written alongside the bundle. It loads
// the ESM bundle and resolves the externalized runtime (react, react-dom,
// lucide-react, framer-motion) through an import map, with Tailwind from
// the CDN. The transparent body lets the hosting shell supply the chrome.
const hostPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Widget Preview</title>
    <script src="https://cdn.tailwindcss.com"></script>
    <style>
        body { background-color: transparent; margin: 0; padding: 0; overflow: hidden; }
        #root { width: 100%; height: 100%; display: flex; flex-direction: column; }
    </style>
    <script type="importmap">
    {
        "imports": {
            "react": "https://esm.sh/react@18.2.0",
            "react/jsx-runtime": "https://esm.sh/react@18.2.0/jsx-runtime",
            "react-dom/client": "https://esm.sh/react-dom@18.2.0/client",
            "lucide-react": "https://esm.sh/lucide-react@0.263.1",
            "framer-motion": "https://esm.sh/framer-motion@10.12.16"
        }
    }
    </script>
</head>
<body>
    <div id="root"></div>
    <script type="module">
        import React from 'react';
        import { createRoot } from 'react-dom/client';
        import Widget from './widget.bundled.js';

        const root = createRoot(document.getElementById('root'));
        root.render(React.createElement(Widget));
    </script>
</body>
</html>
`
